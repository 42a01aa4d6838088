// Package attributes defines the face attributes reported by facescan and the
// label distributions returned by attribute estimators.
package attributes

import "math"

// Attribute identifies one estimated face attribute.
type Attribute string

const (
	Age    Attribute = "age"
	Gender Attribute = "gender"
	Race   Attribute = "race"
)

// All lists the attributes in the order they are estimated and exported.
var All = []Attribute{Age, Gender, Race}

// Sentinel values written when an attribute could not be estimated.
const (
	AgeUnavailable   = "NaN"
	LabelUnavailable = "Unknown"
)

// Label sets reported by the estimators, in model output order.
var (
	GenderLabels = []string{"Woman", "Man"}
	RaceLabels   = []string{"asian", "indian", "black", "white", "middle eastern", "latino hispanic"}
)

// Score is the confidence, in percent, assigned to a single label.
type Score struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
}

// Distribution is an ordered set of label scores. Order follows the label set
// of the attribute and decides ties in ArgMax.
type Distribution []Score

// NewDistribution pairs labels with probabilities (0..1) and converts them to
// percentages. Extra probabilities beyond the label set are ignored; missing
// ones are treated as zero.
func NewDistribution(labels []string, probs []float64) Distribution {
	d := make(Distribution, len(labels))
	for i, l := range labels {
		var p float64
		if i < len(probs) {
			p = probs[i]
		}
		d[i] = Score{Label: l, Score: p * 100}
	}
	return d
}

// ArgMax returns the label with the highest score. The earliest label wins a
// tie. ok is false for an empty distribution.
func (d Distribution) ArgMax() (string, bool) {
	if len(d) == 0 {
		return "", false
	}
	best := 0
	for i := 1; i < len(d); i++ {
		if d[i].Score > d[best].Score {
			best = i
		}
	}
	return d[best].Label, true
}

// Label returns the arg-max label or LabelUnavailable.
func (d Distribution) Label() string {
	if l, ok := d.ArgMax(); ok {
		return l
	}
	return LabelUnavailable
}

// Get returns the score for label and whether it is present.
func (d Distribution) Get(label string) (float64, bool) {
	for _, s := range d {
		if s.Label == label {
			return s.Score, true
		}
	}
	return 0, false
}

// Softmax converts logits to probabilities.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	var sum float64
	probs := make([]float64, len(logits))
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// ToProbabilities returns values unchanged (as float64) when they already form
// a probability vector, and their softmax otherwise.
func ToProbabilities(values []float32) []float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		if v < 0 || v > 1 {
			return Softmax(values)
		}
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-3 {
		return Softmax(values)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// ExpectedValue returns sum(i * p_i), the expectation of a distribution over
// the integers 0..len(probs)-1.
func ExpectedValue(probs []float64) float64 {
	var e float64
	for i, p := range probs {
		e += float64(i) * p
	}
	return e
}
