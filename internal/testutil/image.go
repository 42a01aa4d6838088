package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

// MediumSize is the size of generated folder images.
var MediumSize = ImageSize{320, 240}

var (
	skinTone   = color.NRGBA{R: 224, G: 172, B: 105, A: 255}
	background = color.NRGBA{R: 40, G: 60, B: 90, A: 255}
	featureCol = color.NRGBA{R: 30, G: 20, B: 20, A: 255}
)

// CreateTestImage creates a uniformly coloured image.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// CreateFaceImage draws a cartoon face (skin-toned ellipse, two eyes and a
// mouth) on a dark background. It is a stand-in with saturated and
// unsaturated regions, not something a cascade is expected to detect.
func CreateFaceImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	cx, cy := float64(width)/2, float64(height)/2
	rx, ry := float64(width)*0.3, float64(height)*0.4

	for y := range height {
		for x := range width {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy <= 1 {
				img.SetNRGBA(x, y, skinTone)
			} else {
				img.SetNRGBA(x, y, background)
			}
		}
	}

	eyeR := math.Max(1, float64(width)*0.04)
	fillCircle(img, cx-rx*0.4, cy-ry*0.25, eyeR, featureCol)
	fillCircle(img, cx+rx*0.4, cy-ry*0.25, eyeR, featureCol)
	mouth := image.Rect(int(cx-rx*0.35), int(cy+ry*0.4), int(cx+rx*0.35), int(cy+ry*0.48)+1)
	draw.Draw(img, mouth, &image.Uniform{featureCol}, image.Point{}, draw.Src)
	return img
}

func fillCircle(img *image.NRGBA, cx, cy, r float64, c color.NRGBA) {
	for y := int(cy - r); y <= int(cy+r); y++ {
		for x := int(cx - r); x <= int(cx+r); x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r && image.Pt(x, y).In(img.Bounds()) {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

// CreateTestImageWithText renders text centred on a white image.
func CreateTestImageWithText(text string, width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{color.Black},
		Face: face,
		Dot:  fixed.P((width-textWidth)/2, (height+textHeight)/2),
	}
	d.DrawString(text)
	return img
}

// SaveImage encodes img at path; the format follows the file extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, imaging.Save(img, path), "Failed to save image %s", path)
}

// LoadImage decodes the image at path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := imaging.Open(path)
	require.NoError(t, err, "Failed to open image file %s", path)
	return img
}

// CreateImageFolder populates dir with the named files. Names with an image
// extension get a synthetic face image; anything else gets plain text.
func CreateImageFolder(t *testing.T, dir string, names ...string) {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	for _, name := range names {
		path := filepath.Join(dir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg":
			SaveImage(t, CreateFaceImage(MediumSize.Width, MediumSize.Height), path)
		default:
			WriteFile(t, dir, name, "not an image\n")
		}
	}
}

// CompareImages reports whether two images have identical bounds and an
// average colour difference within tolerance (0..1).
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	bounds1 := img1.Bounds()
	if bounds1 != img2.Bounds() {
		return false
	}

	var totalDiff, pixelCount float64
	for y := bounds1.Min.Y; y < bounds1.Max.Y; y++ {
		for x := bounds1.Min.X; x < bounds1.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)
			totalDiff += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
			pixelCount++
		}
	}
	if pixelCount == 0 {
		return true
	}

	maxDiff := math.Sqrt(4 * 65535 * 65535)
	return (totalDiff/pixelCount)/maxDiff <= tolerance
}
