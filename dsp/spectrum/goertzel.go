// Package spectrum provides single-bin frequency analysis.
package spectrum

import (
	"fmt"
	"math"
)

// Goertzel implements the Goertzel algorithm for single-bin frequency
// analysis.
//
// It evaluates one term of the DFT without computing a full FFT, which is
// enough for tone detection and for verifying band energy in tests. The
// analyzer is stateful and accumulates all samples processed since the last
// Reset; Power and Magnitude evaluate the component over that block.
type Goertzel struct {
	frequency  float64
	sampleRate float64
	coeff      float64
	s0, s1     float64
}

// NewGoertzel creates a new Goertzel analyzer for the target frequency.
//
// frequency must be between 0 and sampleRate/2.
func NewGoertzel(frequency, sampleRate float64) (*Goertzel, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("goertzel: sample rate must be > 0: %v", sampleRate)
	}

	if frequency < 0 || frequency > sampleRate/2 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("goertzel: frequency must be between 0 and sampleRate/2: %v", frequency)
	}

	g := &Goertzel{
		frequency:  frequency,
		sampleRate: sampleRate,
		coeff:      2 * math.Cos(2*math.Pi*frequency/sampleRate),
	}

	return g, nil
}

// Reset clears the internal state.
func (g *Goertzel) Reset() {
	g.s0 = 0
	g.s1 = 0
}

// ProcessSample updates the internal state with a single input sample.
func (g *Goertzel) ProcessSample(input float64) {
	s := input + g.coeff*g.s0 - g.s1
	g.s1 = g.s0
	g.s0 = s
}

// ProcessBlock updates the internal state with a block of samples.
func (g *Goertzel) ProcessBlock(input []float64) {
	s0, s1 := g.s0, g.s1

	coeff := g.coeff
	for _, x := range input {
		s := x + coeff*s0 - s1
		s1 = s0
		s0 = s
	}

	g.s0, g.s1 = s0, s1
}

// Power returns the squared magnitude of the frequency component,
// equivalent to |X[k]|^2 from a DFT of the processed block.
func (g *Goertzel) Power() float64 {
	return g.s0*g.s0 + g.s1*g.s1 - g.coeff*g.s0*g.s1
}

// Magnitude returns the magnitude of the frequency component.
func (g *Goertzel) Magnitude() float64 {
	p := g.Power()
	if p < 0 {
		return 0
	}

	return math.Sqrt(p)
}

// BandPower sums Power over the input for each of the given frequencies,
// a coarse measure of energy in a frequency region.
func BandPower(input []float64, sampleRate float64, freqs ...float64) (float64, error) {
	var total float64

	for _, f := range freqs {
		g, err := NewGoertzel(f, sampleRate)
		if err != nil {
			return 0, err
		}

		g.ProcessBlock(input)
		total += g.Power()
	}

	return total, nil
}
