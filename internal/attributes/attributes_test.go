package attributes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributionArgMax(t *testing.T) {
	tests := []struct {
		name  string
		dist  Distribution
		want  string
		found bool
	}{
		{"empty", nil, "", false},
		{"single", Distribution{{"Man", 12}}, "Man", true},
		{"highest wins", Distribution{{"Woman", 10}, {"Man", 90}}, "Man", true},
		{"tie keeps first", Distribution{{"asian", 40}, {"white", 40}, {"black", 20}}, "asian", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.dist.ArgMax()
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistributionLabel_EmptyIsUnknown(t *testing.T) {
	assert.Equal(t, LabelUnavailable, Distribution{}.Label())
	assert.Equal(t, "Woman", NewDistribution(GenderLabels, []float64{0.7, 0.3}).Label())
}

func TestNewDistribution(t *testing.T) {
	d := NewDistribution(GenderLabels, []float64{0.25})
	require.Len(t, d, 2)
	assert.InDelta(t, 25.0, d[0].Score, 1e-9)
	assert.InDelta(t, 0.0, d[1].Score, 1e-9)

	s, ok := d.Get("Man")
	assert.True(t, ok)
	assert.InDelta(t, 0.0, s, 1e-9)
	_, ok = d.Get("other")
	assert.False(t, ok)
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3})
	require.Len(t, probs, 3)

	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, probs[2], probs[1])
	assert.Greater(t, probs[1], probs[0])
	assert.Nil(t, Softmax(nil))
}

func TestSoftmax_LargeLogitsAreStable(t *testing.T) {
	probs := Softmax([]float32{1000, 1000})
	assert.InDelta(t, 0.5, probs[0], 1e-9)
	assert.False(t, math.IsNaN(probs[1]))
}

func TestToProbabilities(t *testing.T) {
	already := ToProbabilities([]float32{0.2, 0.8})
	assert.InDelta(t, 0.2, already[0], 1e-6)
	assert.InDelta(t, 0.8, already[1], 1e-6)

	logits := ToProbabilities([]float32{2, -1})
	assert.InDelta(t, 1.0, logits[0]+logits[1], 1e-9)
	assert.Greater(t, logits[0], 0.9)

	notNormalised := ToProbabilities([]float32{0.5, 0.6})
	assert.InDelta(t, 1.0, notNormalised[0]+notNormalised[1], 1e-9)
}

func TestExpectedValue(t *testing.T) {
	probs := make([]float64, 101)
	probs[30] = 0.5
	probs[40] = 0.5
	assert.InDelta(t, 35.0, ExpectedValue(probs), 1e-9)
	assert.Zero(t, ExpectedValue(nil))
}
