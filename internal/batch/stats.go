package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/MeKo-Tech/facescan/internal/attributes"
)

// Stats summarises a run.
type Stats struct {
	Images             int
	AgeFailures        int
	GenderFailures     int
	RaceFailures       int
	Annotated          int
	AnnotationFailures int
	FacesDetected      int
	Duration           time.Duration
}

// add counts rec the way it is exported: any attribute rendered as a
// sentinel is a failure, whether or not the estimator returned an error.
func (s *Stats) add(rec Record) {
	if !rec.AgeAvailable() {
		s.AgeFailures++
	}
	if rec.GenderLabel() == attributes.LabelUnavailable {
		s.GenderFailures++
	}
	if rec.RaceLabel() == attributes.LabelUnavailable {
		s.RaceFailures++
	}
	s.FacesDetected += rec.Faces
	if len(rec.AnnotatedFiles) > 0 {
		s.Annotated++
	}
	if rec.AnnotateErr != nil {
		s.AnnotationFailures++
	}
}

// Print writes a human-readable summary.
func (s Stats) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", s.Images)
	_, _ = fmt.Fprintf(w, "  Age unavailable: %d\n", s.AgeFailures)
	_, _ = fmt.Fprintf(w, "  Gender unavailable: %d\n", s.GenderFailures)
	_, _ = fmt.Fprintf(w, "  Race unavailable: %d\n", s.RaceFailures)
	if s.Annotated > 0 || s.AnnotationFailures > 0 {
		_, _ = fmt.Fprintf(w, "  Annotated: %d (faces: %d, problems: %d)\n",
			s.Annotated, s.FacesDetected, s.AnnotationFailures)
	}
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", s.Duration.Round(time.Millisecond))
	if s.Images > 0 {
		avg := s.Duration / time.Duration(s.Images)
		_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", avg.Round(time.Millisecond))
	}
}
