// Package dynamics provides amplitude-dependent processors.
package dynamics

import (
	"fmt"
	"math"
	"sort"
)

const (
	// gatePercentile anchors the threshold to the quietest fifth of the
	// clip, a proxy for its noise floor.
	gatePercentile = 20.0
	// gateFloorGain is the fixed attenuation applied below threshold.
	gateFloorGain = 0.1
)

// StaticGate attenuates samples below an amplitude threshold derived from
// the whole buffer: threshold = P20(|x|) * (1 + strength).
//
// The gate is a single whole-buffer pass with a hard knee and no
// attack/release smoothing; gating decisions switch per sample, which can
// click at the boundary. Stateless across calls.
type StaticGate struct {
	strength float64
}

// NewStaticGate creates a gate. strength must be >= 0 and finite; larger
// values raise the threshold and gate more aggressively.
func NewStaticGate(strength float64) (*StaticGate, error) {
	if strength < 0 || math.IsNaN(strength) || math.IsInf(strength, 0) {
		return nil, fmt.Errorf("gate: strength must be >= 0 and finite: %f", strength)
	}

	return &StaticGate{strength: strength}, nil
}

// Strength returns the configured gate strength.
func (g *StaticGate) Strength() float64 { return g.strength }

// Threshold computes the gating threshold for buf.
func (g *StaticGate) Threshold(buf []float64) float64 {
	return percentileAbs(buf, gatePercentile) * (1 + g.strength)
}

// ProcessBlock gates buf in-place. Samples with |x| strictly below the
// threshold are scaled to 10% of their value; all others pass unchanged.
func (g *StaticGate) ProcessBlock(buf []float64) {
	if len(buf) == 0 {
		return
	}

	threshold := g.Threshold(buf)
	for i, x := range buf {
		if math.Abs(x) < threshold {
			buf[i] = x * gateFloorGain
		}
	}
}

// percentileAbs returns the p-th percentile of |buf| using linear
// interpolation between order statistics.
func percentileAbs(buf []float64, p float64) float64 {
	if len(buf) == 0 {
		return 0
	}

	sorted := make([]float64, len(buf))
	for i, v := range buf {
		sorted[i] = math.Abs(v)
	}

	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (float64(len(sorted)) - 1) * p / 100
	lo := int(rank)
	frac := rank - float64(lo)

	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
