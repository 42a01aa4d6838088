package localizer

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Pigo detects faces with a pigo pixel-intensity cascade. It is pure Go.
type Pigo struct {
	cfg        Config
	classifier *pigo.Pigo
}

// NewPigo unpacks the cascade file at path.
func NewPigo(cfg Config, path string) (*Pigo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: cascade path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("error reading the cascade file: %w", err)
	}
	return NewPigoFromBytes(cfg, data)
}

// NewPigoFromBytes unpacks an in-memory cascade.
func NewPigoFromBytes(cfg Config, cascade []byte) (*Pigo, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &Pigo{cfg: cfg, classifier: classifier}, nil
}

// Detect runs the cascade over the grayscale image and returns clustered
// detections scoring at least the configured threshold.
func (p *Pigo) Detect(img image.Image) ([]image.Rectangle, error) {
	if img == nil {
		return nil, fmt.Errorf("detect: nil image")
	}
	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	maxSize := p.cfg.MaxSize
	if maxSize <= 0 {
		maxSize = min(cols, rows)
	}

	params := pigo.CascadeParams{
		MinSize:     p.cfg.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: p.cfg.ShiftFactor,
		ScaleFactor: p.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// angle 0.0 means no rotation
	dets := p.classifier.RunCascade(params, 0.0)
	dets = p.classifier.ClusterDetections(dets, p.cfg.IoUThreshold)

	offset := img.Bounds().Min
	return detectionsToRects(dets, p.cfg.ScoreThreshold, offset), nil
}

// detectionsToRects converts centre/scale detections to rectangles, dropping
// those scoring below minScore.
func detectionsToRects(dets []pigo.Detection, minScore float64, offset image.Point) []image.Rectangle {
	rects := make([]image.Rectangle, 0, len(dets))
	for _, det := range dets {
		if float64(det.Q) < minScore {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		rects = append(rects, r.Add(offset))
	}
	return rects
}

// Close is a no-op; the cascade lives in memory.
func (p *Pigo) Close() error { return nil }
