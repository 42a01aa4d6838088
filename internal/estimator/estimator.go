// Package estimator predicts apparent age, gender and race for a face image.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/facescan/internal/attributes"
	"github.com/MeKo-Tech/facescan/internal/localizer"
	"github.com/MeKo-Tech/facescan/internal/onnx"
)

// Backend names.
const (
	BackendONNX        = "onnx"
	BackendRekognition = "rekognition"
)

var (
	// ErrNoFace is returned when face detection is enforced and no face is found.
	ErrNoFace = errors.New("no face detected")
	// ErrUnsupported is returned for an attribute the backend cannot estimate.
	ErrUnsupported = errors.New("attribute not supported by backend")
)

// Estimator is the attribute model contract. Every method may fail; callers
// substitute a sentinel for any error.
type Estimator interface {
	EstimateAge(ctx context.Context, img image.Image) (float64, error)
	EstimateGender(ctx context.Context, img image.Image) (attributes.Distribution, error)
	EstimateRace(ctx context.Context, img image.Image) (attributes.Distribution, error)
	Close() error
}

// ONNXConfig selects the per-attribute models. Empty paths resolve under the
// models directory.
type ONNXConfig struct {
	AgeModel    string         `mapstructure:"age_model" yaml:"age_model" json:"age_model"`
	GenderModel string         `mapstructure:"gender_model" yaml:"gender_model" json:"gender_model"`
	RaceModel   string         `mapstructure:"race_model" yaml:"race_model" json:"race_model"`
	NumThreads  int            `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	GPU         onnx.GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// RekognitionConfig configures the AWS backend. Credentials come from the
// default AWS chain.
type RekognitionConfig struct {
	Region  string `mapstructure:"region" yaml:"region" json:"region"`
	Profile string `mapstructure:"profile" yaml:"profile" json:"profile"`
}

// Config controls attribute estimation.
type Config struct {
	Backend          string            `mapstructure:"backend" yaml:"backend" json:"backend"`
	EnforceDetection bool              `mapstructure:"enforce_detection" yaml:"enforce_detection" json:"enforce_detection"`
	CropPadding      float64           `mapstructure:"crop_padding" yaml:"crop_padding" json:"crop_padding"`
	ONNX             ONNXConfig        `mapstructure:"onnx" yaml:"onnx" json:"onnx"`
	Rekognition      RekognitionConfig `mapstructure:"rekognition" yaml:"rekognition" json:"rekognition"`
}

// DefaultConfig returns the default estimator settings.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendONNX,
		EnforceDetection: true,
		CropPadding:      0.15,
		ONNX: ONNXConfig{
			GPU: onnx.DefaultGPUConfig(),
		},
		Rekognition: RekognitionConfig{
			Region: "us-east-1",
		},
	}
}

// Validate checks the estimator settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendONNX, BackendRekognition:
	default:
		return fmt.Errorf("invalid estimator backend %q (must be %s or %s)", c.Backend, BackendONNX, BackendRekognition)
	}
	if c.CropPadding < 0 || c.CropPadding > 1 {
		return fmt.Errorf("crop_padding must be in [0,1], got %v", c.CropPadding)
	}
	if c.ONNX.NumThreads < 0 {
		return fmt.Errorf("onnx num_threads must be >= 0, got %d", c.ONNX.NumThreads)
	}
	if err := onnx.ValidateGPUConfig(c.ONNX.GPU); err != nil {
		return fmt.Errorf("onnx gpu: %w", err)
	}
	if c.Backend == BackendRekognition && c.Rekognition.Region == "" {
		return errors.New("rekognition region is required")
	}
	return nil
}

// New builds the estimator selected by cfg.Backend. loc may be nil; it is only
// used by the onnx backend to crop faces.
func New(ctx context.Context, cfg Config, modelsDir string, loc localizer.Localizer) (Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendRekognition:
		r, err := NewRekognition(ctx, cfg.Rekognition)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return NewONNX(cfg, modelsDir, loc), nil
	}
}
