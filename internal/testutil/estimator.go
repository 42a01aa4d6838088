package testutil

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/MeKo-Tech/facescan/internal/attributes"
)

// ErrStub is the default failure returned by StubEstimator.
var ErrStub = errors.New("stub estimator failure")

// StubEstimator returns fixed predictions, or the configured errors, and
// counts calls per attribute.
type StubEstimator struct {
	Age    float64
	Gender attributes.Distribution
	Race   attributes.Distribution

	AgeErr    error
	GenderErr error
	RaceErr   error

	mu     sync.Mutex
	calls  map[attributes.Attribute]int
	closed bool
}

// NewStubEstimator returns a stub predicting a 31 year old white man.
func NewStubEstimator() *StubEstimator {
	return &StubEstimator{
		Age:    31.4,
		Gender: attributes.NewDistribution(attributes.GenderLabels, []float64{0.2, 0.8}),
		Race:   attributes.NewDistribution(attributes.RaceLabels, []float64{0.05, 0.05, 0.1, 0.6, 0.1, 0.1}),
	}
}

// NewFailingEstimator returns a stub that fails every attribute.
func NewFailingEstimator() *StubEstimator {
	return &StubEstimator{AgeErr: ErrStub, GenderErr: ErrStub, RaceErr: ErrStub}
}

func (s *StubEstimator) record(a attributes.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[attributes.Attribute]int)
	}
	s.calls[a]++
}

// Calls returns how often attr was estimated.
func (s *StubEstimator) Calls(attr attributes.Attribute) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[attr]
}

// Closed reports whether Close was called.
func (s *StubEstimator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *StubEstimator) EstimateAge(_ context.Context, _ image.Image) (float64, error) {
	s.record(attributes.Age)
	if s.AgeErr != nil {
		return 0, s.AgeErr
	}
	return s.Age, nil
}

func (s *StubEstimator) EstimateGender(_ context.Context, _ image.Image) (attributes.Distribution, error) {
	s.record(attributes.Gender)
	if s.GenderErr != nil {
		return nil, s.GenderErr
	}
	return s.Gender, nil
}

func (s *StubEstimator) EstimateRace(_ context.Context, _ image.Image) (attributes.Distribution, error) {
	s.record(attributes.Race)
	if s.RaceErr != nil {
		return nil, s.RaceErr
	}
	return s.Race, nil
}

func (s *StubEstimator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
