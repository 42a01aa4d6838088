package heatmap

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/facescan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_AlwaysCanonicalSize(t *testing.T) {
	sizes := []testutil.ImageSize{{Width: 1, Height: 1}, {Width: 37, Height: 900}, {Width: 1200, Height: 300}, {Width: 500, Height: 500}}
	for _, s := range sizes {
		out, err := Render(testutil.CreateFaceImage(s.Width, s.Height), DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 500, 500), out.Bounds(), "input %dx%d", s.Width, s.Height)
	}
}

func TestRender_NilImage(t *testing.T) {
	_, err := Render(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestRender_Deterministic(t *testing.T) {
	img := testutil.CreateFaceImage(120, 90)
	a, err := Render(img, DefaultConfig())
	require.NoError(t, err)
	b, err := Render(img, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestRender_GreyImageBlendsBlue(t *testing.T) {
	grey := testutil.CreateTestImage(50, 50, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	cfg := DefaultConfig()
	cfg.Size = 10

	out, err := Render(grey, cfg)
	require.NoError(t, err)
	// zero saturation everywhere: mask is black, JET(0) is dark blue
	c := out.NRGBAAt(5, 5)
	assert.Greater(t, c.B, c.R)
	assert.InDelta(t, 64, int(c.R), 2)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero size", mutate: func(c *Config) { c.Size = 0 }},
		{name: "bad channel", mutate: func(c *Config) { c.Channel = "luma" }},
		{name: "negative sigma", mutate: func(c *Config) { c.BlurSigma = -1 }},
		{name: "opacity too high", mutate: func(c *Config) { c.Opacity = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v uint8
	}{
		{name: "black", r: 0, g: 0, b: 0, h: 0, s: 0, v: 0},
		{name: "white", r: 255, g: 255, b: 255, h: 0, s: 0, v: 255},
		{name: "red", r: 255, g: 0, b: 0, h: 0, s: 255, v: 255},
		{name: "green", r: 0, g: 255, b: 0, h: 60, s: 255, v: 255},
		{name: "blue", r: 0, g: 0, b: 255, h: 120, s: 255, v: 255},
		{name: "half saturated", r: 200, g: 100, b: 100, h: 0, s: 128, v: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := RGBToHSV(tt.r, tt.g, tt.b)
			assert.Equal(t, tt.h, h)
			assert.Equal(t, tt.s, s)
			assert.Equal(t, tt.v, v)
		})
	}
}

func TestJet(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 128, A: 255}, Jet(0))
	assert.Equal(t, color.NRGBA{R: 128, G: 0, B: 0, A: 255}, Jet(255))
	mid := Jet(128)
	assert.Greater(t, mid.G, uint8(250))
}

func TestThresholdMask(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})

	mask := thresholdMask(img, ChannelSaturation, 60)
	assert.Equal(t, uint8(255), mask.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), mask.NRGBAAt(1, 0).R)

	mask = thresholdMask(img, ChannelValue, 60)
	assert.Equal(t, uint8(255), mask.NRGBAAt(1, 0).R)
}
