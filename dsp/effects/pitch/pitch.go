// Package pitch implements duration-preserving pitch shifting.
//
// The classic vocoder approach: time-stretch by the pitch ratio, then
// resample by the realized hop ratio so the output keeps the input length
// while all partials move by the requested interval.
package pitch

import (
	"fmt"
	"math"

	"github.com/voiceforge/voiceforge/dsp/core"
	"github.com/voiceforge/voiceforge/dsp/effects/stretch"
	"github.com/voiceforge/voiceforge/dsp/resample"
)

const identityEps = 1e-9

// Shifter shifts the pitch of a mono buffer by a semitone interval.
//
// One-shot buffer oriented and not thread-safe; use one instance per call.
type Shifter struct {
	sampleRate float64
	semitones  float64

	stretcher *stretch.TimeStretcher
	quality   resample.Quality
}

// Option configures a Shifter.
type Option func(*Shifter)

// WithResampleQuality sets the quality mode for duration correction.
func WithResampleQuality(q resample.Quality) Option {
	return func(s *Shifter) {
		s.quality = q
	}
}

// NewShifter creates a pitch shifter with a zero-semitone (identity) shift.
func NewShifter(sampleRate float64, opts ...Option) (*Shifter, error) {
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("pitch: sample rate must be positive and finite: %f", sampleRate)
	}

	stretcher, err := stretch.New(sampleRate)
	if err != nil {
		return nil, err
	}

	s := &Shifter{
		sampleRate: sampleRate,
		stretcher:  stretcher,
		quality:    resample.QualityBalanced,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// Semitones returns the configured shift in semitones.
func (s *Shifter) Semitones() float64 { return s.semitones }

// Ratio returns the frequency ratio realized by the configured shift.
func (s *Shifter) Ratio() float64 { return math.Pow(2, s.semitones/12) }

// SetSemitones updates the shift interval. Fractional values are allowed;
// the resulting frequency ratio must be positive and finite.
func (s *Shifter) SetSemitones(semitones float64) error {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return fmt.Errorf("pitch: semitones must be finite: %f", semitones)
	}

	if ratio := math.Pow(2, semitones/12); !core.IsFinitePositive(ratio) {
		return fmt.Errorf("pitch: shift of %f semitones is out of range", semitones)
	}

	s.semitones = semitones

	return nil
}

// Process shifts input by the configured interval. The returned slice
// always has the same length as input; a zero shift returns a copy.
func (s *Shifter) Process(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}

	ratio := s.Ratio()
	if math.Abs(ratio-1) <= identityEps {
		out := make([]float64, len(input))
		copy(out, input)

		return out, nil
	}

	// Stretch duration by the pitch ratio, then play the result back at
	// the hop-quantized ratio to land on the original length.
	err := s.stretcher.SetRate(1 / ratio)
	if err != nil {
		return nil, err
	}

	stretched, err := s.stretcher.Stretched(input)
	if err != nil {
		return nil, err
	}

	analysisHop, synthesisHop := s.stretcher.Hops()
	if analysisHop == synthesisHop {
		return fitLength(stretched, len(input)), nil
	}

	shifted, err := resample.Resample(
		stretched,
		analysisHop,
		synthesisHop,
		resample.WithQuality(s.quality),
	)
	if err != nil {
		return nil, fmt.Errorf("pitch: resampling failed: %w", err)
	}

	return fitLength(shifted, len(input)), nil
}

func fitLength(in []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, in)

	return out
}
