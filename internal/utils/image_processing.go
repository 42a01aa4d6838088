package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ChannelLayout is the memory order of a normalised image tensor.
type ChannelLayout int

const (
	LayoutNCHW ChannelLayout = iota
	LayoutNHWC
)

// NormalizeImage resizes img to width x height and converts it to RGB floats in
// [0,1] using the requested layout.
func NormalizeImage(img image.Image, width, height int, layout ChannelLayout) ([]float32, error) {
	return NormalizeImageInto(img, width, height, layout, nil)
}

// NormalizeImageInto is NormalizeImage writing into buf when it holds at least
// 3*width*height elements. A new slice is allocated otherwise.
func NormalizeImageInto(img image.Image, width, height int, layout ChannelLayout, buf []float32) ([]float32, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{
			Operation: "normalize",
			Err:       fmt.Errorf("invalid target dimensions: %dx%d", width, height),
		}
	}

	nrgba := imaging.Resize(img, width, height, imaging.Lanczos)
	plane := width * height
	data := buf
	if len(data) < 3*plane {
		data = make([]float32, 3*plane)
	}
	data = data[:3*plane]

	for y := range height {
		for x := range width {
			off := nrgba.PixOffset(x, y)
			r := float32(nrgba.Pix[off]) / 255.0
			g := float32(nrgba.Pix[off+1]) / 255.0
			b := float32(nrgba.Pix[off+2]) / 255.0

			idx := y*width + x
			if layout == LayoutNHWC {
				data[idx*3] = r
				data[idx*3+1] = g
				data[idx*3+2] = b
				continue
			}
			data[idx] = r
			data[plane+idx] = g
			data[2*plane+idx] = b
		}
	}

	return data, nil
}
