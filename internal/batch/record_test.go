package batch

import (
	"errors"
	"math"
	"testing"

	"github.com/MeKo-Tech/facescan/internal/attributes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_AgeString(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"rounds down", Record{Age: 31.4}, "31"},
		{"rounds half up", Record{Age: 29.5}, "30"},
		{"error", Record{Age: 40, AgeErr: errors.New("boom")}, "NaN"},
		{"nan value", Record{Age: math.NaN()}, "NaN"},
		{"infinite value", Record{Age: math.Inf(1)}, "NaN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.AgeString())
		})
	}
}

func TestRecord_Labels(t *testing.T) {
	gender := attributes.NewDistribution(attributes.GenderLabels, []float64{0.7, 0.3})
	race := attributes.NewDistribution(attributes.RaceLabels, []float64{0, 0, 0.9, 0.1, 0, 0})

	rec := Record{Path: "/x/a.png", Age: 22, Gender: gender, Race: race}
	assert.Equal(t, "Woman", rec.GenderLabel())
	assert.Equal(t, "black", rec.RaceLabel())
	assert.Equal(t, "22, Woman, Black", rec.Labels().String())
	assert.False(t, rec.Failed())

	rec.GenderErr = errors.New("no face")
	assert.Equal(t, attributes.LabelUnavailable, rec.GenderLabel())

	empty := Record{Path: "/x/b.png"}
	assert.Equal(t, attributes.LabelUnavailable, empty.RaceLabel(), "empty distribution has no arg-max")
}

func TestRecord_FileNameIsNFC(t *testing.T) {
	decomposed := "/imgs/Jose\u0301.png"
	rec := Record{Path: decomposed}
	assert.Equal(t, "Jos\u00e9.png", rec.FileName())
}

func TestRecord_Failed(t *testing.T) {
	err := errors.New("x")
	assert.True(t, Record{AgeErr: err, GenderErr: err, RaceErr: err}.Failed())
	// race defaults to an empty distribution, which also reads as Unknown
	assert.True(t, Record{AgeErr: err, GenderErr: err}.Failed())
	assert.False(t, Record{Age: 30, GenderErr: err, RaceErr: err}.Failed())
}

func TestTable_PutReplacesInPlace(t *testing.T) {
	table := NewTable()
	table.Put(Record{Path: "a.png", Age: 1})
	table.Put(Record{Path: "b.png", Age: 2})
	table.Put(Record{Path: "a.png", Age: 3})

	require.Equal(t, 2, table.Len())
	recs := table.Records()
	assert.Equal(t, "a.png", recs[0].Path)
	assert.InDelta(t, 3.0, recs[0].Age, 1e-9)
	assert.Equal(t, "b.png", recs[1].Path)

	got, ok := table.Get("b.png")
	require.True(t, ok)
	assert.InDelta(t, 2.0, got.Age, 1e-9)

	_, ok = table.Get("c.png")
	assert.False(t, ok)
}
