package effects

import (
	"fmt"
	"math"
)

// Saturator applies tanh soft-clip saturation.
//
// The transfer curve is tanh(x * (1 + intensity)): drive grows with
// intensity, output stays smoothly bounded in (-1, 1). Stateless, so a
// single instance is safe for concurrent use.
type Saturator struct {
	drive float64
}

// NewSaturator creates a saturator. intensity must be >= 0 and finite;
// intensity 0 still applies the unit-drive tanh curve.
func NewSaturator(intensity float64) (*Saturator, error) {
	if intensity < 0 || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return nil, fmt.Errorf("saturator: intensity must be >= 0 and finite: %f", intensity)
	}

	return &Saturator{drive: 1 + intensity}, nil
}

// Drive returns the linear pre-gain applied before the tanh curve.
func (s *Saturator) Drive() float64 { return s.drive }

// ProcessSample saturates a single sample.
func (s *Saturator) ProcessSample(x float64) float64 {
	return math.Tanh(x * s.drive)
}

// ProcessBlock saturates a block of samples in-place.
func (s *Saturator) ProcessBlock(buf []float64) {
	drive := s.drive
	for i, x := range buf {
		buf[i] = math.Tanh(x * drive)
	}
}
