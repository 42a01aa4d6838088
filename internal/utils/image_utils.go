package utils

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// LargestRect returns the rectangle with the greatest area. ok is false for an
// empty slice.
func LargestRect(rects []image.Rectangle) (image.Rectangle, bool) {
	if len(rects) == 0 {
		return image.Rectangle{}, false
	}
	best := rects[0]
	bestArea := best.Dx() * best.Dy()
	for _, r := range rects[1:] {
		if a := r.Dx() * r.Dy(); a > bestArea {
			best, bestArea = r, a
		}
	}
	return best, true
}

// PadRect grows rect by pct of its width and height on every side and clamps
// the result to bounds.
func PadRect(rect, bounds image.Rectangle, pct float64) image.Rectangle {
	if pct < 0 {
		pct = 0
	}
	padX := int(math.Round(float64(rect.Dx()) * pct))
	padY := int(math.Round(float64(rect.Dy()) * pct))
	padded := image.Rect(rect.Min.X-padX, rect.Min.Y-padY, rect.Max.X+padX, rect.Max.Y+padY)
	return padded.Intersect(bounds)
}

// CropImageRect crops an image to the given rectangle.
func CropImageRect(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return imaging.New(0, 0, color.Transparent)
	}
	return imaging.Crop(img, rect)
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.NRGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}
