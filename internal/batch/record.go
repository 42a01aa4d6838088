package batch

import (
	"math"
	"path/filepath"
	"strconv"

	"github.com/MeKo-Tech/facescan/internal/annotate"
	"github.com/MeKo-Tech/facescan/internal/attributes"
	"golang.org/x/text/unicode/norm"
)

// Record holds the inferred attributes of one image. A non-nil *Err field
// means the attribute is unavailable and its value must not be used.
type Record struct {
	Path string

	Age    float64
	AgeErr error

	Gender    attributes.Distribution
	GenderErr error

	Race    attributes.Distribution
	RaceErr error

	Faces          int
	AnnotateErr    error
	AnnotatedFiles []string
}

// FileName returns the NFC-normalised base name of the image path.
func (r Record) FileName() string {
	return norm.NFC.String(filepath.Base(r.Path))
}

// AgeAvailable reports whether Age holds a usable value.
func (r Record) AgeAvailable() bool {
	return r.AgeErr == nil && !math.IsNaN(r.Age) && !math.IsInf(r.Age, 0)
}

// AgeString returns the age rounded to whole years, or the sentinel.
func (r Record) AgeString() string {
	if !r.AgeAvailable() {
		return attributes.AgeUnavailable
	}
	return strconv.Itoa(int(math.Round(r.Age)))
}

// GenderLabel returns the arg-max gender, or the sentinel.
func (r Record) GenderLabel() string {
	if r.GenderErr != nil {
		return attributes.LabelUnavailable
	}
	return r.Gender.Label()
}

// RaceLabel returns the arg-max race, or the sentinel.
func (r Record) RaceLabel() string {
	if r.RaceErr != nil {
		return attributes.LabelUnavailable
	}
	return r.Race.Label()
}

// Labels returns the values printed on the bounding-box image.
func (r Record) Labels() annotate.Labels {
	return annotate.Labels{Age: r.AgeString(), Gender: r.GenderLabel(), Race: r.RaceLabel()}
}

// Failed reports whether every attribute is unavailable.
func (r Record) Failed() bool {
	return !r.AgeAvailable() && r.GenderLabel() == attributes.LabelUnavailable &&
		r.RaceLabel() == attributes.LabelUnavailable
}

// Table is an insertion-ordered collection of records keyed by path.
type Table struct {
	records []Record
	index   map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Put inserts rec, replacing an existing record with the same path in place.
func (t *Table) Put(rec Record) {
	if i, ok := t.index[rec.Path]; ok {
		t.records[i] = rec
		return
	}
	t.index[rec.Path] = len(t.records)
	t.records = append(t.records, rec)
}

// Get returns the record for path.
func (t *Table) Get(path string) (Record, bool) {
	i, ok := t.index[path]
	if !ok {
		return Record{}, false
	}
	return t.records[i], true
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Records returns the records in insertion order. The slice must not be modified.
func (t *Table) Records() []Record { return t.records }
