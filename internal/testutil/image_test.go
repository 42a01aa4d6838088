package testutil

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFaceImage(t *testing.T) {
	img := CreateFaceImage(100, 80)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
	assert.Equal(t, skinTone, img.NRGBAAt(50, 60))
	assert.Equal(t, background, img.NRGBAAt(0, 0))
}

func TestSaveAndLoadImage(t *testing.T) {
	dir := CreateTempDir(t)
	img := CreateTestImage(20, 10, color.NRGBA{R: 10, G: 200, B: 30, A: 255})

	for _, name := range []string{"a.png", "b.jpg"} {
		path := filepath.Join(dir, name)
		SaveImage(t, img, path)
		loaded := LoadImage(t, path)
		assert.Equal(t, img.Bounds(), loaded.Bounds())
		assert.True(t, CompareImages(img, loaded, 0.05))
	}
}

func TestCreateImageFolder(t *testing.T) {
	dir := filepath.Join(CreateTempDir(t), "faces")
	CreateImageFolder(t, dir, "a.png", "b.txt", "c.JPG")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "not an image\n", ReadFile(t, filepath.Join(dir, "b.txt")))
	LoadImage(t, filepath.Join(dir, "c.JPG"))
}

func TestCompareImages(t *testing.T) {
	white := CreateTestImage(10, 10, color.White)
	black := CreateTestImage(10, 10, color.Black)
	assert.True(t, CompareImages(white, white, 0))
	assert.False(t, CompareImages(white, black, 0.1))
	assert.False(t, CompareImages(white, CreateTestImage(5, 5, color.White), 1))
}

func TestCreateTestImageWithText(t *testing.T) {
	img := CreateTestImageWithText("hi", 40, 20)
	assert.False(t, CompareImages(img, CreateTestImage(40, 20, color.White), 0))
}
