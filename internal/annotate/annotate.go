// Package annotate writes heatmap and bounding-box copies of analysed images.
package annotate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/facescan/internal/heatmap"
	"github.com/MeKo-Tech/facescan/internal/localizer"
	"github.com/MeKo-Tech/facescan/internal/utils"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Output file suffixes.
const (
	HeatmapSuffix     = "_heatmapped.png"
	BoundingBoxSuffix = "_boundingbox.png"
	DirSuffix         = "-heatmap"
)

var (
	// ErrNoFaces is reported when the localizer finds nothing to box.
	ErrNoFaces = errors.New("no faces detected")
	// ErrNoLocalizer is reported when bounding boxes are requested without a localizer.
	ErrNoLocalizer = errors.New("face localizer unavailable")
)

// BoxColor is the outline and label colour.
var BoxColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// Config controls annotation output.
type Config struct {
	Enabled      bool           `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Dir          string         `mapstructure:"dir" yaml:"dir" json:"dir"`
	BoxThickness int            `mapstructure:"box_thickness" yaml:"box_thickness" json:"box_thickness"`
	Heatmap      heatmap.Config `mapstructure:"heatmap" yaml:"heatmap" json:"heatmap"`
}

// DefaultConfig returns annotation disabled with a 2px outline.
func DefaultConfig() Config {
	return Config{
		BoxThickness: 2,
		Heatmap:      heatmap.DefaultConfig(),
	}
}

// Validate checks the annotation settings.
func (c Config) Validate() error {
	if c.BoxThickness < 1 {
		return fmt.Errorf("annotate box_thickness must be >= 1, got %d", c.BoxThickness)
	}
	return c.Heatmap.Validate()
}

// DefaultDir derives the annotation directory from the input directory by
// suffixing its last element: faceimages becomes faceimages-heatmap.
func DefaultDir(inputDir string) string {
	clean := filepath.Clean(inputDir)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+DirSuffix)
}

// ValidateDir checks that dir exists and is a directory. It is never created.
func ValidateDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("annotation directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("annotation directory %s is not a directory", dir)
	}
	return nil
}

// Labels are the inferred values printed next to a face.
type Labels struct {
	Age    string
	Gender string
	Race   string
}

var titleCaser = cases.Title(language.English)

// String formats the labels as "age, Gender, Race".
func (l Labels) String() string {
	return strings.Join([]string{l.Age, titleCaser.String(l.Gender), titleCaser.String(l.Race)}, ", ")
}

// Result lists the files written for one image.
type Result struct {
	HeatmapPath     string
	BoundingBoxPath string
	Faces           int
	// Replaces is the earlier input whose artifacts share this stem and were
	// overwritten, as happens for equal names in different subdirectories.
	Replaces string
}

// Annotator renders both artifacts for an image.
type Annotator struct {
	cfg Config
	dir string
	loc localizer.Localizer

	// stem -> input path that last wrote it
	written map[string]string
}

// New creates an annotator writing into dir. loc may be nil, in which case
// only heatmaps are produced.
func New(cfg Config, dir string, loc localizer.Localizer) *Annotator {
	return &Annotator{cfg: cfg, dir: dir, loc: loc, written: make(map[string]string)}
}

// Dir returns the output directory.
func (a *Annotator) Dir() string { return a.dir }

// Annotate writes <stem>_heatmapped.png and, when a face is found,
// <stem>_boundingbox.png. The heatmap is written even when box drawing fails.
func (a *Annotator) Annotate(path string, img image.Image, labels Labels) (Result, error) {
	var res Result
	stem := utils.StemName(path)

	// Artifact names only carry the stem, so a.png in two folders collide
	if prev, ok := a.written[stem]; ok && prev != path {
		res.Replaces = prev
		slog.Warn("annotation output overwritten by file with the same name",
			"file", path, "previous", prev, "dir", a.dir)
	}
	a.written[stem] = path

	hm, err := heatmap.Render(img, a.cfg.Heatmap)
	if err != nil {
		return res, fmt.Errorf("render heatmap: %w", err)
	}
	hmPath := filepath.Join(a.dir, stem+HeatmapSuffix)
	if err := utils.SavePNG(hmPath, hm); err != nil {
		return res, fmt.Errorf("save heatmap: %w", err)
	}
	res.HeatmapPath = hmPath

	if a.loc == nil {
		return res, ErrNoLocalizer
	}
	rects, err := a.loc.Detect(img)
	if err != nil {
		return res, fmt.Errorf("detect faces: %w", err)
	}
	res.Faces = len(rects)
	if len(rects) == 0 {
		return res, ErrNoFaces
	}

	boxed := DrawBoxes(img, rects, labels.String(), a.cfg.BoxThickness)
	boxPath := filepath.Join(a.dir, stem+BoundingBoxSuffix)
	if err := utils.SavePNG(boxPath, boxed); err != nil {
		return res, fmt.Errorf("save bounding boxes: %w", err)
	}
	res.BoundingBoxPath = boxPath
	return res, nil
}

// DrawBoxes returns a copy of img with every rectangle outlined and label
// written once, above the last rectangle.
func DrawBoxes(img image.Image, rects []image.Rectangle, label string, thickness int) *image.NRGBA {
	origin := img.Bounds().Min
	dst := imaging.Clone(img)
	for _, r := range rects {
		utils.DrawRect(dst, r.Sub(origin), BoxColor, thickness)
	}
	if len(rects) > 0 && label != "" {
		drawLabel(dst, rects[len(rects)-1].Sub(origin), label)
	}
	return dst
}

// drawLabel places text just above rect, or just inside its top edge when
// there is no room above.
func drawLabel(dst *image.NRGBA, rect image.Rectangle, label string) {
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()

	baseline := rect.Min.Y - descent - 2
	if baseline-ascent < 0 {
		baseline = rect.Min.Y + ascent + 2
	}
	x := max(rect.Min.X, 0)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(BoxColor),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(label)
}
