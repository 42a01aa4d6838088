// Package localizer finds face rectangles in images using classical cascade
// detectors.
package localizer

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/facescan/internal/models"
)

// Backend names.
const (
	BackendPigo   = "pigo"
	BackendOpenCV = "opencv"
)

// ErrNoOpenCV is returned when the OpenCV backend is requested from a binary
// built without the opencv tag.
var ErrNoOpenCV = errors.New("opencv backend not available (build with -tags opencv)")

// Localizer detects faces and returns their bounding rectangles in image
// coordinates. Zero detections is not an error.
type Localizer interface {
	Detect(img image.Image) ([]image.Rectangle, error)
	Close() error
}

// Config controls face detection.
type Config struct {
	Backend        string  `mapstructure:"backend" yaml:"backend" json:"backend"`
	CascadePath    string  `mapstructure:"cascade_path" yaml:"cascade_path" json:"cascade_path"`
	MinSize        int     `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
	MaxSize        int     `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	ShiftFactor    float64 `mapstructure:"shift_factor" yaml:"shift_factor" json:"shift_factor"`
	ScaleFactor    float64 `mapstructure:"scale_factor" yaml:"scale_factor" json:"scale_factor"`
	IoUThreshold   float64 `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
	ScoreThreshold float64 `mapstructure:"score_threshold" yaml:"score_threshold" json:"score_threshold"`
}

// DefaultConfig returns the pigo settings used by facescan.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendPigo,
		MinSize:        20,
		MaxSize:        0,
		ShiftFactor:    0.1,
		ScaleFactor:    1.1,
		IoUThreshold:   0.2,
		ScoreThreshold: 5.0,
	}
}

// Validate checks the detection parameters.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPigo, BackendOpenCV:
	default:
		return fmt.Errorf("invalid localizer backend %q (must be %s or %s)", c.Backend, BackendPigo, BackendOpenCV)
	}
	if c.MinSize < 1 {
		return fmt.Errorf("localizer min_size must be >= 1, got %d", c.MinSize)
	}
	if c.MaxSize < 0 || (c.MaxSize > 0 && c.MaxSize < c.MinSize) {
		return fmt.Errorf("localizer max_size must be 0 or >= min_size, got %d", c.MaxSize)
	}
	if c.ShiftFactor <= 0 || c.ShiftFactor > 1 {
		return fmt.Errorf("localizer shift_factor must be in (0,1], got %v", c.ShiftFactor)
	}
	if c.ScaleFactor <= 1 {
		return fmt.Errorf("localizer scale_factor must be > 1, got %v", c.ScaleFactor)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("localizer iou_threshold must be in [0,1], got %v", c.IoUThreshold)
	}
	return nil
}

// ResolveCascadePath returns the cascade file for the configured backend,
// looking under modelsDir unless an explicit path is set.
func (c Config) ResolveCascadePath(modelsDir string) string {
	if c.CascadePath != "" {
		return c.CascadePath
	}
	if c.Backend == BackendOpenCV {
		return models.GetCascadePath(modelsDir, models.CascadeHaarFront)
	}
	return models.GetCascadePath(modelsDir, models.CascadePigo)
}

// New builds the localizer selected by cfg.Backend.
func New(cfg Config, modelsDir string) (Localizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == BackendOpenCV && !opencvAvailable {
		return nil, ErrNoOpenCV
	}
	path := cfg.ResolveCascadePath(modelsDir)
	if err := models.ValidateModelExists(path); err != nil {
		return nil, fmt.Errorf("face cascade: %w", err)
	}
	switch cfg.Backend {
	case BackendOpenCV:
		return newOpenCV(path)
	default:
		p, err := NewPigo(cfg, path)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
