//go:build opencv

package localizer

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const opencvAvailable = true

// OpenCV detects faces with an OpenCV Haar cascade.
type OpenCV struct {
	mu  sync.Mutex
	cls gocv.CascadeClassifier
}

func newOpenCV(path string) (Localizer, error) {
	cls := gocv.NewCascadeClassifier()
	if !cls.Load(path) {
		_ = cls.Close()
		return nil, fmt.Errorf("failed to load haar cascade: %s", path)
	}
	return &OpenCV{cls: cls}, nil
}

// Detect converts img to grayscale and runs DetectMultiScale.
func (o *OpenCV) Detect(img image.Image) ([]image.Rectangle, error) {
	if img == nil {
		return nil, errors.New("detect: nil image")
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("image to mat: %w", err)
	}
	defer func() { _ = mat.Close() }()

	gray := gocv.NewMat()
	defer func() { _ = gray.Close() }()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	o.mu.Lock()
	rects := o.cls.DetectMultiScale(gray)
	o.mu.Unlock()

	offset := img.Bounds().Min
	for i := range rects {
		rects[i] = rects[i].Add(offset)
	}
	return rects, nil
}

// Close releases the classifier.
func (o *OpenCV) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cls.Close()
}
