// Package stretch implements phase-vocoder time stretching.
//
// Duration changes while pitch is preserved: the short-time spectrum is
// analyzed at one hop size and resynthesized at another, with identity
// phase locking (Laroche & Dolson 1999) keeping partials coherent.
package stretch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/voiceforge/voiceforge/dsp/core"
	"github.com/voiceforge/voiceforge/dsp/window"
)

const (
	defaultFrameSize   = 1024
	defaultAnalysisHop = 256
	minFrameSize       = 64
	identityEps        = 1e-9
	normFloor          = 1e-12
)

// TimeStretcher stretches a mono buffer by a playback rate factor.
//
// Rate r > 1 shortens the signal (output length = round(n/r)); r < 1
// lengthens it. The processor is one-shot buffer oriented and not
// thread-safe; use one instance per call site.
type TimeStretcher struct {
	sampleRate  float64
	rate        float64
	frameSize   int
	analysisHop int

	plan *algofft.Plan[complex128]

	windowCoeffs []float64
	omega        []float64
	prevPhase    []float64
	sumPhase     []float64

	analysisSpectrum  []complex128
	synthesisSpectrum []complex128
	timeFrame         []complex128

	magnitudes []float64
	instFreqs  []float64
	peakBins   []int
}

// Option configures a TimeStretcher.
type Option func(*TimeStretcher)

// WithFrameSize sets the FFT frame size. size must be a power of two
// and >= 64; invalid values surface from New.
func WithFrameSize(size int) Option {
	return func(t *TimeStretcher) {
		t.frameSize = size
	}
}

// WithAnalysisHop sets the analysis hop size in samples.
func WithAnalysisHop(hop int) Option {
	return func(t *TimeStretcher) {
		t.analysisHop = hop
	}
}

// New creates a time stretcher with rate 1 (identity).
func New(sampleRate float64, opts ...Option) (*TimeStretcher, error) {
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("stretch: sample rate must be positive and finite: %f", sampleRate)
	}

	t := &TimeStretcher{
		sampleRate:  sampleRate,
		rate:        1,
		frameSize:   defaultFrameSize,
		analysisHop: defaultAnalysisHop,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	if t.frameSize < minFrameSize || !isPowerOf2(t.frameSize) {
		return nil, fmt.Errorf("stretch: frame size must be power-of-two and >= %d: %d", minFrameSize, t.frameSize)
	}

	if t.analysisHop <= 0 || t.analysisHop >= t.frameSize {
		return nil, fmt.Errorf("stretch: analysis hop must be in [1, %d): %d", t.frameSize, t.analysisHop)
	}

	err := t.rebuildState()
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Rate returns the current playback rate factor.
func (t *TimeStretcher) Rate() float64 { return t.rate }

// SetRate updates the playback rate factor. rate must be positive and finite.
func (t *TimeStretcher) SetRate(rate float64) error {
	if !core.IsFinitePositive(rate) {
		return fmt.Errorf("stretch: rate must be positive and finite: %f", rate)
	}

	t.rate = rate

	return nil
}

// Hops returns the analysis and synthesis hop sizes realized for the
// current rate. The effective stretch factor is synthesis/analysis.
func (t *TimeStretcher) Hops() (analysis, synthesis int) {
	synthesis = max(1, int(math.Round(float64(t.analysisHop)/t.rate)))

	return t.analysisHop, synthesis
}

// Reset clears phase tracking state.
func (t *TimeStretcher) Reset() {
	for i := range t.prevPhase {
		t.prevPhase[i] = 0
		t.sumPhase[i] = 0
	}
}

// Process stretches input and fits the result to round(len(input)/rate).
func (t *TimeStretcher) Process(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}

	if math.Abs(t.rate-1) <= identityEps {
		out := make([]float64, len(input))
		copy(out, input)

		return out, nil
	}

	stretched, err := t.Stretched(input)
	if err != nil {
		return nil, err
	}

	nOut := int(math.Round(float64(len(input)) / t.rate))
	if nOut < 1 {
		nOut = 1
	}

	return fitLength(stretched, nOut), nil
}

// Stretched returns the raw overlap-add output without length fitting.
// Its length is quantized by the hop ratio; callers needing an exact
// duration use Process.
func (t *TimeStretcher) Stretched(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}

	t.Reset()

	analysisHop, synthesisHop := t.Hops()
	frameCount := 1 + (len(input)-1)/analysisHop
	outLen := (frameCount-1)*synthesisHop + t.frameSize
	output := make([]float64, outLen)
	norm := make([]float64, outLen)

	half := t.frameSize / 2
	analysisHopF := float64(analysisHop)
	synthesisHopF := float64(synthesisHop)

	for frame := range frameCount {
		inPos := frame * analysisHop
		outPos := frame * synthesisHop

		for i := range t.frameSize {
			x := 0.0

			idx := inPos + i
			if idx < len(input) {
				x = input[idx]
			}

			t.analysisSpectrum[i] = complex(x*t.windowCoeffs[i], 0)
		}

		err := t.plan.Forward(t.analysisSpectrum, t.analysisSpectrum)
		if err != nil {
			return nil, fmt.Errorf("stretch: forward FFT failed: %w", err)
		}

		// Magnitudes and instantaneous frequencies.
		for k := 0; k <= half; k++ {
			re := real(t.analysisSpectrum[k])
			im := imag(t.analysisSpectrum[k])
			t.magnitudes[k] = math.Hypot(re, im)
			phase := math.Atan2(im, re)

			delta := phase - t.prevPhase[k] - t.omega[k]*analysisHopF
			delta = wrapPhase(delta)

			t.instFreqs[k] = t.omega[k] + delta/analysisHopF
			t.prevPhase[k] = phase
		}

		t.lockPhases(half, synthesisHopF)

		// Mirror for real-valued IFFT.
		t.synthesisSpectrum[0] = complex(real(t.synthesisSpectrum[0]), 0)

		t.synthesisSpectrum[half] = complex(real(t.synthesisSpectrum[half]), 0)
		for k := 1; k < half; k++ {
			v := t.synthesisSpectrum[k]
			t.synthesisSpectrum[t.frameSize-k] = complex(real(v), -imag(v))
		}

		err = t.plan.Inverse(t.timeFrame, t.synthesisSpectrum)
		if err != nil {
			return nil, fmt.Errorf("stretch: inverse FFT failed: %w", err)
		}

		for i := range t.frameSize {
			idx := outPos + i
			w := t.windowCoeffs[i]
			output[idx] += real(t.timeFrame[i]) * w
			norm[idx] += w * w
		}
	}

	for i := range output {
		if norm[i] > normFloor {
			output[i] /= norm[i]
		}
	}

	return output, nil
}

// lockPhases accumulates synthesis phases with identity phase locking:
// spectral peaks advance by their instantaneous frequency and the bins in
// each peak's region of influence keep their analysis phase relation to it.
func (t *TimeStretcher) lockPhases(half int, synthesisHopF float64) {
	t.peakBins = t.peakBins[:0]
	for k := 1; k < half; k++ {
		if t.magnitudes[k] >= t.magnitudes[k-1] && t.magnitudes[k] > t.magnitudes[k+1] {
			t.peakBins = append(t.peakBins, k)
		}
	}

	if len(t.peakBins) == 0 {
		for k := 0; k <= half; k++ {
			t.sumPhase[k] += t.instFreqs[k] * synthesisHopF
			t.synthesisSpectrum[k] = complex(
				t.magnitudes[k]*math.Cos(t.sumPhase[k]),
				t.magnitudes[k]*math.Sin(t.sumPhase[k]),
			)
		}

		return
	}

	for _, pk := range t.peakBins {
		t.sumPhase[pk] += t.instFreqs[pk] * synthesisHopF
	}

	peakIdx := 0
	for k := 0; k <= half; k++ {
		for peakIdx+1 < len(t.peakBins) {
			curr := t.peakBins[peakIdx]

			next := t.peakBins[peakIdx+1]
			if absInt(next-k) < absInt(curr-k) {
				peakIdx++
			} else {
				break
			}
		}

		pk := t.peakBins[peakIdx]
		if k != pk {
			t.sumPhase[k] = t.sumPhase[pk] + (t.prevPhase[k] - t.prevPhase[pk])
		}

		t.synthesisSpectrum[k] = complex(
			t.magnitudes[k]*math.Cos(t.sumPhase[k]),
			t.magnitudes[k]*math.Sin(t.sumPhase[k]),
		)
	}
}

func (t *TimeStretcher) rebuildState() error {
	plan, err := algofft.NewPlan64(t.frameSize)
	if err != nil {
		return fmt.Errorf("stretch: failed to create FFT plan: %w", err)
	}

	t.plan = plan
	t.windowCoeffs = window.Hann(t.frameSize, window.WithPeriodic())

	bins := t.frameSize/2 + 1

	t.omega = make([]float64, bins)
	for k := range bins {
		t.omega[k] = 2 * math.Pi * float64(k) / float64(t.frameSize)
	}

	t.prevPhase = make([]float64, bins)
	t.sumPhase = make([]float64, bins)
	t.analysisSpectrum = make([]complex128, t.frameSize)
	t.synthesisSpectrum = make([]complex128, t.frameSize)
	t.timeFrame = make([]complex128, t.frameSize)

	t.magnitudes = make([]float64, bins)
	t.instFreqs = make([]float64, bins)
	t.peakBins = make([]int, 0, bins)

	return nil
}

func fitLength(in []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, in)

	return out
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}

	return x - math.Pi
}

func isPowerOf2(v int) bool {
	return v > 0 && (v&(v-1)) == 0
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}

	return x
}
