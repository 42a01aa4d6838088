package onnx

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/facescan/internal/utils"
)

// Tensor represents a simple float32 tensor prepared for ONNX input.
// Data layout is row-major.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor builds a single-image tensor. data must hold c*h*w values in
// the given layout; the shape is [1, C, H, W] for NCHW and [1, H, W, C] for NHWC.
func NewImageTensor(data []float32, c, h, w int, layout utils.ChannelLayout) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if expected := c * h * w; len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	shape := []int64{1, int64(c), int64(h), int64(w)}
	if layout == utils.LayoutNHWC {
		shape = []int64{1, int64(h), int64(w), int64(c)}
	}
	return Tensor{Data: data, Shape: shape}, nil
}

// ValidateImageShape ensures a shape is rank 4 with positive dimensions.
func ValidateImageShape(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// VerifyImageTensor checks data length matches the tensor shape.
func VerifyImageTensor(t Tensor) error {
	if err := ValidateImageShape(t.Shape); err != nil {
		return err
	}
	expected := int(t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3])
	if len(t.Data) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), expected, t.Shape)
	}
	return nil
}

// TensorStats computes min, max and mean for debug output.
func TensorStats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}

// InferImageLayout guesses the channel layout and spatial size from model
// input dimensions. Dynamic (non-positive) sizes fall back to def.
func InferImageLayout(dims []int64, def int) (utils.ChannelLayout, int, int) {
	layout := utils.LayoutNCHW
	h, w := def, def
	if len(dims) != 4 {
		return layout, w, h
	}
	hIdx, wIdx := 2, 3
	if dims[3] == 3 && dims[1] != 3 {
		layout = utils.LayoutNHWC
		hIdx, wIdx = 1, 2
	}
	if dims[hIdx] > 0 {
		h = int(dims[hIdx])
	}
	if dims[wIdx] > 0 {
		w = int(dims[wIdx])
	}
	return layout, w, h
}
