package estimator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/facescan/internal/attributes"
	"github.com/MeKo-Tech/facescan/internal/localizer"
	"github.com/MeKo-Tech/facescan/internal/models"
	"github.com/MeKo-Tech/facescan/internal/onnx"
	"github.com/MeKo-Tech/facescan/internal/utils"
)

// imageRunner is the part of an ONNX session the estimator needs.
type imageRunner interface {
	RunImage(img image.Image) ([]float32, []int64, error)
	Close() error
}

type head struct {
	runner imageRunner
	err    error
}

// ONNX estimates attributes with one ONNX model per attribute. Models are
// loaded on first use; a failed load is remembered and reported on every
// call for that attribute.
type ONNX struct {
	cfg       Config
	modelsDir string
	loc       localizer.Localizer

	mu    sync.Mutex
	heads map[attributes.Attribute]*head

	// last face crop, keyed by source image identity
	lastSrc  image.Image
	lastFace image.Image
	lastErr  error

	newRunner func(onnx.SessionConfig) (imageRunner, error)
}

// NewONNX creates an ONNX estimator. No model is loaded until it is needed.
func NewONNX(cfg Config, modelsDir string, loc localizer.Localizer) *ONNX {
	return &ONNX{
		cfg:       cfg,
		modelsDir: modelsDir,
		loc:       loc,
		heads:     make(map[attributes.Attribute]*head),
		newRunner: func(sc onnx.SessionConfig) (imageRunner, error) {
			s, err := onnx.NewSession(sc)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// ModelPath returns the model file used for attr.
func (e *ONNX) ModelPath(attr attributes.Attribute) string {
	var explicit, filename string
	switch attr {
	case attributes.Age:
		explicit, filename = e.cfg.ONNX.AgeModel, models.AttributeAge
	case attributes.Gender:
		explicit, filename = e.cfg.ONNX.GenderModel, models.AttributeGender
	case attributes.Race:
		explicit, filename = e.cfg.ONNX.RaceModel, models.AttributeRace
	}
	if explicit != "" {
		return explicit
	}
	return models.GetAttributeModelPath(e.modelsDir, filename)
}

func (e *ONNX) head(attr attributes.Attribute) (imageRunner, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h, ok := e.heads[attr]; ok {
		return h.runner, h.err
	}

	path := e.ModelPath(attr)
	r, err := e.newRunner(onnx.SessionConfig{
		ModelPath:  path,
		NumThreads: e.cfg.ONNX.NumThreads,
		GPU:        e.cfg.ONNX.GPU,
	})
	if err != nil {
		r = nil
		err = fmt.Errorf("load %s model: %w", attr, err)
		slog.Warn("attribute model unavailable", "attribute", attr, "path", path, "error", err)
	}
	e.heads[attr] = &head{runner: r, err: err}
	return r, err
}

// face returns the region the models run on. With enforced detection a face
// must be found; otherwise the full image is the fallback.
func (e *ONNX) face(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastSrc != nil && e.lastSrc == img {
		return e.lastFace, e.lastErr
	}

	face, err := e.cropFace(img)
	e.lastSrc, e.lastFace, e.lastErr = img, face, err
	return face, err
}

func (e *ONNX) cropFace(img image.Image) (image.Image, error) {
	if e.loc == nil {
		if e.cfg.EnforceDetection {
			return nil, fmt.Errorf("%w: no face localizer configured", ErrNoFace)
		}
		return img, nil
	}

	rects, err := e.loc.Detect(img)
	if err != nil {
		if e.cfg.EnforceDetection {
			return nil, fmt.Errorf("face detection: %w", err)
		}
		slog.Debug("face detection failed, using full image", "error", err)
		return img, nil
	}

	best, ok := utils.LargestRect(rects)
	if !ok {
		if e.cfg.EnforceDetection {
			return nil, ErrNoFace
		}
		return img, nil
	}
	region := utils.PadRect(best, img.Bounds(), e.cfg.CropPadding)
	return utils.CropImageRect(img, region), nil
}

func (e *ONNX) run(attr attributes.Attribute, img image.Image) ([]float32, []int64, error) {
	r, err := e.head(attr)
	if err != nil {
		return nil, nil, err
	}
	face, err := e.face(img)
	if err != nil {
		return nil, nil, err
	}
	out, shape, err := r.RunImage(face)
	if err != nil {
		return nil, nil, fmt.Errorf("%s inference: %w", attr, err)
	}
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("%s inference: empty output", attr)
	}
	return out, shape, nil
}

// EstimateAge returns the apparent age in years. A single output value is a
// regression; a longer vector is a distribution over ages 0..N-1.
func (e *ONNX) EstimateAge(_ context.Context, img image.Image) (float64, error) {
	out, _, err := e.run(attributes.Age, img)
	if err != nil {
		return 0, err
	}
	return decodeAge(out), nil
}

// EstimateGender returns the gender distribution.
func (e *ONNX) EstimateGender(_ context.Context, img image.Image) (attributes.Distribution, error) {
	return e.classify(attributes.Gender, attributes.GenderLabels, img)
}

// EstimateRace returns the race distribution.
func (e *ONNX) EstimateRace(_ context.Context, img image.Image) (attributes.Distribution, error) {
	return e.classify(attributes.Race, attributes.RaceLabels, img)
}

func (e *ONNX) classify(attr attributes.Attribute, labels []string, img image.Image) (attributes.Distribution, error) {
	out, _, err := e.run(attr, img)
	if err != nil {
		return nil, err
	}
	return decodeDistribution(out, labels)
}

func decodeAge(out []float32) float64 {
	if len(out) == 1 {
		return float64(out[0])
	}
	return attributes.ExpectedValue(attributes.ToProbabilities(out))
}

func decodeDistribution(out []float32, labels []string) (attributes.Distribution, error) {
	if len(out) < len(labels) {
		return nil, fmt.Errorf("model produced %d scores, want %d", len(out), len(labels))
	}
	probs := attributes.ToProbabilities(out[:len(labels)])
	return attributes.NewDistribution(labels, probs), nil
}

// Close releases every loaded model.
func (e *ONNX) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for attr, h := range e.heads {
		if h.runner == nil {
			continue
		}
		if err := h.runner.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s model: %w", attr, err))
		}
	}
	e.heads = make(map[attributes.Attribute]*head)
	e.lastSrc, e.lastFace, e.lastErr = nil, nil, nil
	return errors.Join(errs...)
}
