package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNormalizeImage_NCHW(t *testing.T) {
	img := solid(8, 6, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	data, err := NormalizeImage(img, 4, 2, LayoutNCHW)
	require.NoError(t, err)
	require.Len(t, data, 3*4*2)

	plane := 4 * 2
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 0.0, data[plane], 1e-6)
	assert.InDelta(t, 0.2, data[2*plane], 1e-6)
}

func TestNormalizeImage_NHWC(t *testing.T) {
	img := solid(5, 5, color.NRGBA{R: 0, G: 255, B: 0, A: 255})
	data, err := NormalizeImage(img, 3, 3, LayoutNHWC)
	require.NoError(t, err)
	require.Len(t, data, 27)

	for i := 0; i < 9; i++ {
		assert.InDelta(t, 0.0, data[i*3], 1e-6)
		assert.InDelta(t, 1.0, data[i*3+1], 1e-6)
		assert.InDelta(t, 0.0, data[i*3+2], 1e-6)
	}
}

func TestNormalizeImage_Errors(t *testing.T) {
	_, err := NormalizeImage(nil, 4, 4, LayoutNCHW)
	require.Error(t, err)

	_, err = NormalizeImage(solid(2, 2, color.NRGBA{}), 0, 4, LayoutNCHW)
	var ipe *ImageProcessingError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "normalize", ipe.Operation)
}

func TestNormalizeImageInto_ReusesBuffer(t *testing.T) {
	img := solid(8, 8, color.NRGBA{R: 255, A: 255})
	buf := make([]float32, 1024)
	for i := range buf {
		buf[i] = -1
	}

	data, err := NormalizeImageInto(img, 4, 4, LayoutNCHW, buf)
	require.NoError(t, err)
	require.Len(t, data, 48)
	assert.Same(t, &buf[0], &data[0])
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 0.0, data[47], 1e-6)

	small := make([]float32, 5)
	data, err = NormalizeImageInto(img, 4, 4, LayoutNCHW, small)
	require.NoError(t, err)
	assert.Len(t, data, 48)
}
