package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/facescan/internal/annotate"
	"github.com/MeKo-Tech/facescan/internal/attributes"
	"github.com/MeKo-Tech/facescan/internal/estimator"
	"github.com/MeKo-Tech/facescan/internal/metrics"
	"github.com/MeKo-Tech/facescan/internal/utils"
)

// Processor runs estimation and optional annotation over images, strictly
// one after another.
type Processor struct {
	Estimator estimator.Estimator
	Annotator *annotate.Annotator
	Metrics   *metrics.Metrics
	Progress  ProgressCallback
}

func (p *Processor) progress() ProgressCallback {
	if p.Progress == nil {
		return NoOpProgressCallback{}
	}
	return p.Progress
}

// Process builds the results table for files in order.
func (p *Processor) Process(ctx context.Context, files []string) (*Table, Stats) {
	start := time.Now()
	table := NewTable()
	stats := Stats{Images: len(files)}
	cb := p.progress()

	cb.OnStart(len(files))
	for i, path := range files {
		cb.OnImage(i+1, len(files), path)
		rec := p.ProcessImage(ctx, path)
		stats.add(rec)

		// Only a row with no usable attribute is reported as an error
		if rec.Failed() {
			cb.OnError(i+1, path, firstErr(rec.AgeErr, rec.GenderErr, rec.RaceErr))
		}
		table.Put(rec)
	}
	stats.Duration = time.Since(start)
	cb.OnComplete()

	p.Metrics.ObserveRun(stats.Duration)
	return table, stats
}

// ProcessImage estimates every attribute of one image. Failures never abort
// the image; they are recorded in the returned Record.
func (p *Processor) ProcessImage(ctx context.Context, path string) Record {
	rec := Record{Path: path}

	// An undecodable image still gets a row, with every attribute unavailable
	img, _, err := utils.LoadImage(path)
	if err != nil {
		err = fmt.Errorf("load %s: %w", path, err)
		slog.Warn("image could not be decoded", "file", path, "error", err)
		rec.AgeErr, rec.GenderErr, rec.RaceErr = err, err, err
		p.Metrics.ObserveImage(metrics.StatusDecodeError)
		for _, a := range attributes.All {
			p.Metrics.ObserveAttributeFailure(string(a))
		}
		return rec
	}

	// One call per attribute; each may fail independently
	rec.Age, rec.AgeErr = timed(p, attributes.Age, path, func() (float64, error) {
		return p.Estimator.EstimateAge(ctx, img)
	})
	rec.Gender, rec.GenderErr = timed(p, attributes.Gender, path, func() (attributes.Distribution, error) {
		return p.Estimator.EstimateGender(ctx, img)
	})
	rec.Race, rec.RaceErr = timed(p, attributes.Race, path, func() (attributes.Distribution, error) {
		return p.Estimator.EstimateRace(ctx, img)
	})
	p.Metrics.ObserveImage(metrics.StatusOK)

	if p.Annotator != nil {
		p.annotate(&rec, img)
	}
	return rec
}

func timed[T any](p *Processor, attr attributes.Attribute, path string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	p.Metrics.ObserveEstimate(string(attr), time.Since(start), err)
	if err != nil {
		slog.Warn("attribute estimation failed", "file", path, "attribute", attr, "error", err)
	}
	return v, err
}

func (p *Processor) annotate(rec *Record, img image.Image) {
	res, err := p.Annotator.Annotate(rec.Path, img, rec.Labels())
	rec.Faces = res.Faces
	rec.AnnotateErr = err
	for _, f := range []string{res.HeatmapPath, res.BoundingBoxPath} {
		if f != "" {
			rec.AnnotatedFiles = append(rec.AnnotatedFiles, f)
		}
	}
	p.Metrics.ObserveAnnotation(res.Faces, err)

	// Annotation problems are warnings; the row is exported regardless
	switch {
	case errors.Is(err, annotate.ErrNoFaces):
		slog.Warn("no faces detected, bounding box skipped", "file", rec.Path)
	case err != nil:
		slog.Warn("annotation failed", "file", rec.Path, "error", err)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
