// Package resample converts whole buffers between sample rates using a
// Kaiser-windowed polyphase FIR.
package resample

import (
	"errors"
	"math"
)

var (
	// ErrInvalidRatio indicates an invalid up/down ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality controls default anti-aliasing filter settings.
type Quality int

const (
	// QualityFast prioritizes lower CPU usage.
	QualityFast Quality = iota
	// QualityBalanced is the default quality/performance trade-off.
	QualityBalanced
	// QualityBest prioritizes stopband attenuation and passband flatness.
	QualityBest
)

type profile struct {
	tapsPerPhase int
	cutoffScale  float64
	kaiserBeta   float64
}

func qualityProfile(q Quality) profile {
	switch q {
	case QualityFast:
		return profile{tapsPerPhase: 16, cutoffScale: 0.88, kaiserBeta: 5.0}
	case QualityBest:
		return profile{tapsPerPhase: 64, cutoffScale: 0.96, kaiserBeta: 9.0}
	default:
		return profile{tapsPerPhase: 32, cutoffScale: 0.92, kaiserBeta: 7.5}
	}
}

type config struct {
	quality Quality
	maxDen  int
}

// Option configures the resampler.
type Option func(*config)

// WithQuality selects a predefined anti-aliasing quality mode.
func WithQuality(q Quality) Option {
	return func(cfg *config) {
		cfg.quality = q
	}
}

// WithMaxDenominator caps denominator size for rate-ratio approximation.
func WithMaxDenominator(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDen = n
		}
	}
}

func applyOptions(opts []Option) config {
	cfg := config{quality: QualityBalanced, maxDen: 4096}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// Resample converts input by the rational factor up/down in one shot.
//
// The whole buffer is filtered with zero initial state; the output length is
// ceil(len(input)*up/down).
func Resample(input []float64, up, down int, opts ...Option) ([]float64, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}

	g := gcd(up, down)
	up /= g
	down /= g

	if len(input) == 0 {
		return nil, nil
	}

	if up == 1 && down == 1 {
		out := make([]float64, len(input))
		copy(out, input)

		return out, nil
	}

	cfg := applyOptions(opts)

	phases, err := designPolyphaseFIR(up, down, qualityProfile(cfg.quality))
	if err != nil {
		return nil, err
	}

	nOut := outputLen(len(input), up, down)
	out := make([]float64, 0, nOut)

	// The prototype filter is linear phase; offsetting the tap window by
	// half a branch length keeps the output time-aligned with the input
	// to within 1/(2*up) of an input sample.
	delay := len(phases[0]) / 2

	phase := 0
	inputIndex := 0

	for len(out) < nOut {
		taps := phases[phase]

		var y float64

		for k, c := range taps {
			idx := inputIndex + delay - k
			if idx < 0 || idx >= len(input) {
				continue
			}

			y += c * input[idx]
		}

		out = append(out, y)

		phase += down
		inputIndex += phase / up
		phase %= up
	}

	return out, nil
}

// ResampleRate converts input from inRate to outRate, approximating the rate
// ratio as a rational factor.
func ResampleRate(input []float64, inRate, outRate float64, opts ...Option) ([]float64, error) {
	if inRate <= 0 || outRate <= 0 || math.IsNaN(inRate) || math.IsNaN(outRate) {
		return nil, ErrInvalidRate
	}

	cfg := applyOptions(opts)
	up, down := approximateRatio(outRate/inRate, cfg.maxDen)

	return Resample(input, up, down, opts...)
}

func outputLen(inputLen, up, down int) int {
	return (inputLen*up + down - 1) / down
}
