// Package pipeline runs the fixed voice-transformation chain: decode to a
// mono 44100 Hz buffer, apply the conditional effect stages in order, then
// normalize and encode a 16-bit PCM WAV.
package pipeline

import (
	stderrors "errors"
	"fmt"

	"github.com/voiceforge/voiceforge/dsp/codec"
	"github.com/voiceforge/voiceforge/dsp/core"
	"github.com/voiceforge/voiceforge/dsp/effects"
	"github.com/voiceforge/voiceforge/dsp/effects/dynamics"
	"github.com/voiceforge/voiceforge/dsp/effects/pitch"
	"github.com/voiceforge/voiceforge/dsp/effects/stretch"
	"github.com/voiceforge/voiceforge/dsp/filter/biquad"
	"github.com/voiceforge/voiceforge/dsp/filter/design"
	"github.com/voiceforge/voiceforge/internal/platform/errors"
)

// SampleRate is the internal processing rate in Hz. Decode converts every
// source to this rate and the encoded output carries it.
const SampleRate = codec.DefaultSampleRate

const (
	timbreCutoffHz  = 2800
	depthCutoffHz   = 180
	clarityCutoffHz = 3200

	timbreGainDiv  = 80
	depthGainDiv   = 60
	emotionDiv     = 120
	noiseGateDiv   = 100
	clarityGainDiv = 120
)

// Transform decodes audioBytes, applies s, and returns the rendered WAV.
// Stages whose guard is not met are strict identity passes. Errors carry a
// kind of decode, process, or encode depending on the failing phase.
func Transform(audioBytes []byte, s VoiceSettings) ([]byte, error) {
	buf, err := codec.Decode(audioBytes, SampleRate)
	if err != nil {
		// Resampler failures are numeric, not a fault of the upload.
		if stderrors.Is(err, codec.ErrResample) {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.decode", "resampling upload", err)
		}
		return nil, errors.Wrap(errors.KindDecode, "pipeline.decode", "decoding upload", err)
	}

	if s.Speed != 1 {
		buf, err = stretchStage(buf, s.StretchRate())
		if err != nil {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.stretch", "time stretch", err)
		}
	}

	if st := s.PitchSemitones(); st != 0 {
		buf, err = pitchStage(buf, st)
		if err != nil {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.pitch", "pitch shift", err)
		}
	}

	if s.Timbre != 0 {
		coeffs := design.Butterworth2HP(timbreCutoffHz, SampleRate)
		if err := mixFiltered(buf, coeffs, s.Timbre/timbreGainDiv); err != nil {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.timbre", "timbre filter", err)
		}
	}

	if s.Depth != 0 {
		coeffs := design.Butterworth2LP(depthCutoffHz, SampleRate)
		if err := mixFiltered(buf, coeffs, s.Depth/depthGainDiv); err != nil {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.depth", "depth filter", err)
		}
	}

	if s.Emotion > 0 {
		sat, err := effects.NewSaturator(s.Emotion / emotionDiv)
		if err != nil {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.emotion", "saturation", err)
		}
		sat.ProcessBlock(buf)
	}

	if s.NoiseReduction > 0 {
		gate, err := dynamics.NewStaticGate(s.NoiseReduction / noiseGateDiv)
		if err != nil {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.gate", "noise gate", err)
		}
		gate.ProcessBlock(buf)
	}

	if s.Clarity > 0 {
		coeffs := design.Butterworth2HP(clarityCutoffHz, SampleRate)
		if err := mixFiltered(buf, coeffs, s.Clarity/clarityGainDiv); err != nil {
			return nil, errors.Wrap(errors.KindProcess, "pipeline.clarity", "clarity filter", err)
		}
	}

	normalize(buf)

	out, err := codec.EncodeWAV(buf, SampleRate)
	if err != nil {
		return nil, errors.Wrap(errors.KindEncode, "pipeline.encode", "encoding output", err)
	}

	return out, nil
}

func stretchStage(buf []float64, rate float64) ([]float64, error) {
	stretcher, err := stretch.New(SampleRate)
	if err != nil {
		return nil, err
	}
	if err := stretcher.SetRate(rate); err != nil {
		return nil, err
	}
	return stretcher.Process(buf)
}

func pitchStage(buf []float64, semitones float64) ([]float64, error) {
	shifter, err := pitch.NewShifter(SampleRate)
	if err != nil {
		return nil, err
	}
	if err := shifter.SetSemitones(semitones); err != nil {
		return nil, err
	}
	return shifter.Process(buf)
}

// mixFiltered runs buf through a fresh single biquad section and adds the
// filtered signal back onto the dry signal scaled by gain.
func mixFiltered(buf []float64, coeffs biquad.Coefficients, gain float64) error {
	if coeffs.IsZero() {
		return fmt.Errorf("degenerate filter design")
	}

	scratch := make([]float64, len(buf))
	biquad.NewSection(coeffs).ProcessBlockTo(scratch, buf)
	for i := range buf {
		buf[i] += scratch[i] * gain
	}

	return nil
}

// normalize scales buf to a peak of 1. Silent buffers pass through untouched.
func normalize(buf []float64) {
	peak := core.MaxAbs(buf)
	if peak == 0 {
		return
	}
	for i := range buf {
		buf[i] /= peak
	}
}
