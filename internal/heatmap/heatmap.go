// Package heatmap renders a colour-mapped saliency overlay from an image's
// HSV channels.
package heatmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// HSV channel names.
const (
	ChannelHue        = "hue"
	ChannelSaturation = "saturation"
	ChannelValue      = "value"
)

// Config controls the overlay transform.
type Config struct {
	Size      int     `mapstructure:"size" yaml:"size" json:"size"`
	Channel   string  `mapstructure:"channel" yaml:"channel" json:"channel"`
	Threshold uint8   `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	BlurSigma float64 `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`
	Opacity   float64 `mapstructure:"opacity" yaml:"opacity" json:"opacity"`
}

// DefaultConfig returns a 500x500 saturation heatmap blended at 50%.
// A sigma of 2.6 matches a 15x15 Gaussian kernel.
func DefaultConfig() Config {
	return Config{
		Size:      500,
		Channel:   ChannelSaturation,
		Threshold: 60,
		BlurSigma: 2.6,
		Opacity:   0.5,
	}
}

// Validate checks the overlay settings.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("heatmap size must be > 0, got %d", c.Size)
	}
	switch c.Channel {
	case ChannelHue, ChannelSaturation, ChannelValue:
	default:
		return fmt.Errorf("invalid heatmap channel %q", c.Channel)
	}
	if c.BlurSigma < 0 {
		return fmt.Errorf("heatmap blur_sigma must be >= 0, got %v", c.BlurSigma)
	}
	if c.Opacity < 0 || c.Opacity > 1 {
		return fmt.Errorf("heatmap opacity must be in [0,1], got %v", c.Opacity)
	}
	return nil
}

// Render resizes img to Size x Size (aspect ratio is not kept), thresholds the
// chosen HSV channel, blurs the mask, colours it with the JET map and blends
// it over the resized image.
func Render(img image.Image, cfg Config) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("heatmap: nil image")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resized := imaging.Resize(img, cfg.Size, cfg.Size, imaging.Linear)
	mask := thresholdMask(resized, cfg.Channel, cfg.Threshold)
	if cfg.BlurSigma > 0 {
		mask = imaging.Blur(mask, cfg.BlurSigma)
	}
	colored := applyJet(mask)
	return imaging.Overlay(resized, colored, image.Pt(0, 0), cfg.Opacity), nil
}

// thresholdMask returns a grey NRGBA image that is white where the channel
// exceeds thresh and black elsewhere.
func thresholdMask(img *image.NRGBA, channel string, thresh uint8) *image.NRGBA {
	b := img.Bounds()
	mask := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			h, s, v := RGBToHSV(c.R, c.G, c.B)

			var ch uint8
			switch channel {
			case ChannelHue:
				ch = h
			case ChannelValue:
				ch = v
			default:
				ch = s
			}

			var out uint8
			if ch > thresh {
				out = 255
			}
			mask.SetNRGBA(x, y, color.NRGBA{R: out, G: out, B: out, A: 255})
		}
	}
	return mask
}

// RGBToHSV converts to 8-bit HSV with hue halved into 0..179, the layout
// OpenCV uses for 8-bit images.
func RGBToHSV(r, g, b uint8) (uint8, uint8, uint8) {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	v := maxC
	if maxC == 0 {
		return 0, 0, 0
	}
	delta := float64(maxC) - float64(minC)
	s := uint8(math.Round(delta * 255 / float64(maxC)))
	if delta == 0 {
		return 0, s, v
	}

	var hue float64
	rf, gf, bf := float64(r), float64(g), float64(b)
	switch maxC {
	case r:
		hue = 60 * (gf - bf) / delta
	case g:
		hue = 120 + 60*(bf-rf)/delta
	default:
		hue = 240 + 60*(rf-gf)/delta
	}
	if hue < 0 {
		hue += 360
	}
	h := uint8(math.Round(hue/2)) % 180
	return h, s, v
}

// Jet maps an intensity to the JET colour map (blue to red).
func Jet(v uint8) color.NRGBA {
	f := float64(v) / 255
	ch := func(offset float64) uint8 {
		x := 1.5 - math.Abs(4*f-offset)
		x = math.Max(0, math.Min(1, x))
		return uint8(math.Round(x * 255))
	}
	return color.NRGBA{R: ch(3), G: ch(2), B: ch(1), A: 255}
}

func applyJet(mask *image.NRGBA) *image.NRGBA {
	var lut [256]color.NRGBA
	for i := range lut {
		lut[i] = Jet(uint8(i))
	}

	b := mask.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetNRGBA(x, y, lut[mask.NRGBAAt(x, y).R])
		}
	}
	return out
}
