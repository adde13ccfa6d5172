// Package window generates analysis window coefficients for STFT framing.
package window

import "math"

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Hann returns Hann window coefficients of the given length.
//
// The symmetric form ends on zero at both edges; the periodic form is the
// symmetric window of length+1 with the final sample dropped, which is the
// correct shape for overlap-add STFT processing.
func Hann(length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	denom := float64(length - 1)
	if cfg.periodic {
		denom = float64(length)
	}

	out := make([]float64, length)
	if denom == 0 {
		out[0] = 1
		return out
	}

	for i := range out {
		out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/denom)
	}

	return out
}
