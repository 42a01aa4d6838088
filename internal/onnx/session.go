package onnx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/facescan/internal/mempool"
	"github.com/MeKo-Tech/facescan/internal/utils"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// DefaultInputSize is used when a model declares dynamic spatial dimensions.
const DefaultInputSize = 224

// SessionConfig describes a single-input, single-output image model.
type SessionConfig struct {
	ModelPath  string
	NumThreads int
	GPU        GPUConfig
}

// Session wraps an ONNX Runtime session for one image model.
type Session struct {
	cfg        SessionConfig
	session    *onnxrt.DynamicAdvancedSession
	inputInfo  onnxrt.InputOutputInfo
	outputInfo onnxrt.InputOutputInfo
	layout     utils.ChannelLayout
	inW, inH   int
}

// NewSession loads the model at cfg.ModelPath, initialising the runtime on
// first use.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := validateModelPath(cfg.ModelPath); err != nil {
		return nil, err
	}
	if err := ValidateGPUConfig(cfg.GPU); err != nil {
		return nil, err
	}
	if err := InitializeRuntime(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	in, out, err := validateModelIO(inputs, outputs)
	if err != nil {
		return nil, err
	}

	opts, err := createSessionOptions(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	sess, err := onnxrt.NewDynamicAdvancedSession(cfg.ModelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{cfg: cfg, session: sess, inputInfo: in, outputInfo: out}
	s.layout, s.inW, s.inH = InferImageLayout(in.Dimensions, DefaultInputSize)
	slog.Debug("loaded model", "path", cfg.ModelPath, "input", in.Name,
		"width", s.inW, "height", s.inH, "nhwc", s.layout == utils.LayoutNHWC)
	return s, nil
}

func validateModelPath(modelPath string) error {
	if modelPath == "" {
		return errors.New("empty model path")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("model file not found: %w", err)
	}
	return nil
}

func validateModelIO(inputs, outputs []onnxrt.InputOutputInfo) (onnxrt.InputOutputInfo, onnxrt.InputOutputInfo, error) {
	if len(inputs) != 1 || len(outputs) < 1 {
		return onnxrt.InputOutputInfo{}, onnxrt.InputOutputInfo{},
			fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return onnxrt.InputOutputInfo{}, onnxrt.InputOutputInfo{},
			fmt.Errorf("expected 4D input, got %dD", len(inputs[0].Dimensions))
	}
	return inputs[0], outputs[0], nil
}

func createSessionOptions(cfg SessionConfig) (*onnxrt.SessionOptions, error) {
	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	if err := ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		_ = opts.Destroy()
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		_ = opts.SetIntraOpNumThreads(cfg.NumThreads)
	}
	return opts, nil
}

// InputSize returns the spatial size images are resized to.
func (s *Session) InputSize() (int, int) { return s.inW, s.inH }

// Layout returns the channel layout the model expects.
func (s *Session) Layout() utils.ChannelLayout { return s.layout }

// RunImage normalises img to the model input and returns a copy of the first
// output tensor with its shape.
func (s *Session) RunImage(img image.Image) ([]float32, []int64, error) {
	if s.session == nil {
		return nil, nil, errors.New("session is closed")
	}

	buf := mempool.GetFloat32(3 * s.inW * s.inH)
	defer mempool.PutFloat32(buf)
	data, err := utils.NormalizeImageInto(img, s.inW, s.inH, s.layout, buf)
	if err != nil {
		return nil, nil, err
	}
	tensor, err := NewImageTensor(data, 3, s.inH, s.inW, s.layout)
	if err != nil {
		return nil, nil, err
	}
	if err := VerifyImageTensor(tensor); err != nil {
		return nil, nil, err
	}

	input, err := onnxrt.NewTensor(onnxrt.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("tensor: %w", err)
	}
	defer func() {
		if err := input.Destroy(); err != nil {
			slog.Warn("failed to destroy input tensor", "error", err)
		}
	}()

	outputs := []onnxrt.Value{nil}
	if err := s.session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return nil, nil, fmt.Errorf("run: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o == nil {
				continue
			}
			if err := o.Destroy(); err != nil {
				slog.Warn("failed to destroy output tensor", "error", err)
			}
		}
	}()

	out, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	result := append([]float32(nil), out.GetData()...)
	shape := append([]int64(nil), out.GetShape()...)
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		minV, maxV, mean := TensorStats(result)
		slog.Debug("model output", "path", s.cfg.ModelPath, "shape", shape, "min", minV, "max", maxV, "mean", mean)
	}
	return result, shape, nil
}

// Close releases the underlying session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
