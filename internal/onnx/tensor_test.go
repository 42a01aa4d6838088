package onnx

import (
	"testing"

	"github.com/MeKo-Tech/facescan/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensor(t *testing.T) {
	c, h, w := 3, 4, 5
	data := make([]float32, c*h*w)

	nchw, err := NewImageTensor(data, c, h, w, utils.LayoutNCHW)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 5}, nchw.Shape)
	require.NoError(t, VerifyImageTensor(nchw))

	nhwc, err := NewImageTensor(data, c, h, w, utils.LayoutNHWC)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 5, 3}, nhwc.Shape)
	require.NoError(t, VerifyImageTensor(nhwc))
}

func TestNewImageTensorErrors(t *testing.T) {
	tests := []struct {
		name string
		data []float32
	}{
		{name: "nil data", data: nil},
		{name: "data too short", data: make([]float32, 10)},
		{name: "data too long", data: make([]float32, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImageTensor(tt.data, 3, 4, 5, utils.LayoutNCHW)
			assert.Error(t, err)
		})
	}
}

func TestVerifyImageTensor_Mismatch(t *testing.T) {
	assert.Error(t, VerifyImageTensor(Tensor{Data: make([]float32, 3), Shape: []int64{1, 3, 2, 2}}))
	assert.Error(t, VerifyImageTensor(Tensor{Data: nil, Shape: []int64{1, 3}}))
	assert.Error(t, ValidateImageShape([]int64{1, 0, 2, 2}))
}

func TestTensorStats(t *testing.T) {
	minV, maxV, mean := TensorStats([]float32{1, -1, 3, 1})
	assert.InDelta(t, -1, minV, 1e-6)
	assert.InDelta(t, 3, maxV, 1e-6)
	assert.InDelta(t, 1, mean, 1e-6)

	minV, maxV, mean = TensorStats(nil)
	assert.Zero(t, minV)
	assert.Zero(t, maxV)
	assert.Zero(t, mean)
}

func TestInferImageLayout(t *testing.T) {
	tests := []struct {
		name         string
		dims         []int64
		wantLayout   utils.ChannelLayout
		wantW, wantH int
	}{
		{name: "nchw fixed", dims: []int64{1, 3, 112, 96}, wantLayout: utils.LayoutNCHW, wantW: 96, wantH: 112},
		{name: "nhwc fixed", dims: []int64{1, 152, 152, 3}, wantLayout: utils.LayoutNHWC, wantW: 152, wantH: 152},
		{name: "nchw dynamic", dims: []int64{-1, 3, -1, -1}, wantLayout: utils.LayoutNCHW, wantW: 224, wantH: 224},
		{name: "nhwc dynamic", dims: []int64{-1, -1, -1, 3}, wantLayout: utils.LayoutNHWC, wantW: 224, wantH: 224},
		{name: "wrong rank", dims: []int64{1, 3}, wantLayout: utils.LayoutNCHW, wantW: 224, wantH: 224},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, w, h := InferImageLayout(tt.dims, DefaultInputSize)
			assert.Equal(t, tt.wantLayout, layout)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
