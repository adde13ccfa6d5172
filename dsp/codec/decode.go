// Package codec decodes uploaded audio containers into the pipeline's mono
// float representation and encodes the result back to WAV.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/voiceforge/voiceforge/dsp/resample"
)

// DefaultSampleRate is the pipeline's fixed internal rate in Hz.
const DefaultSampleRate = 44100

var (
	// ErrEmptyInput indicates an empty or truncated upload.
	ErrEmptyInput = errors.New("codec: empty or truncated input")
	// ErrUnsupportedFormat indicates a container no decoder recognizes.
	ErrUnsupportedFormat = errors.New("codec: unsupported audio format")
	// ErrResample indicates the decoded stream could not be converted to
	// the target rate. The container itself was read successfully.
	ErrResample = errors.New("codec: resampling failed")
)

// Decode converts encoded audio bytes (WAV or MP3) into a mono float
// buffer in [-1, 1] at targetRate Hz. Multi-channel sources are downmixed
// by channel averaging; other sample rates are resampled.
func Decode(data []byte, targetRate float64) ([]float64, error) {
	if len(data) < 12 {
		return nil, ErrEmptyInput
	}

	if targetRate <= 0 {
		return nil, fmt.Errorf("codec: target rate must be > 0: %f", targetRate)
	}

	var (
		samples    []float64
		sourceRate float64
		err        error
	)

	switch {
	case isWAV(data):
		samples, sourceRate, err = decodeWAV(data)
	case isMP3(data):
		samples, sourceRate, err = decodeMP3(data)
	default:
		return nil, ErrUnsupportedFormat
	}

	if err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}

	if sourceRate == targetRate {
		return samples, nil
	}

	out, err := resample.ResampleRate(samples, sourceRate, targetRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v Hz to %v Hz: %w", ErrResample, sourceRate, targetRate, err)
	}

	return out, nil
}

func isWAV(data []byte) bool {
	return bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WAVE"))
}

func isMP3(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}

	// Raw MPEG frame sync: eleven set bits.
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeWAV(data []byte) ([]float64, float64, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: corrupt WAV header", ErrUnsupportedFormat)
	}

	// Integer PCM only; IEEE-float and compressed streams would be
	// misread as integers below.
	if dec.WavAudioFormat != 1 {
		return nil, 0, fmt.Errorf("%w: WAV audio format code %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("codec: reading WAV data: %w", err)
	}

	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, ErrEmptyInput
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}

	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, bitDepth)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, 0, fmt.Errorf("%w: channel count %d", ErrUnsupportedFormat, channels)
	}

	// 8-bit WAV PCM is unsigned around a 128 midpoint; deeper depths
	// are signed two's complement.
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}

	scale := 1 / float64(int64(1)<<(bitDepth-1))
	frames := len(buf.Data) / channels
	mono := make([]float64, frames)

	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += (float64(buf.Data[i*channels+ch]) - offset) * scale
		}

		mono[i] = sum / float64(channels)
	}

	return mono, float64(buf.Format.SampleRate), nil
}

func decodeMP3(data []byte) ([]float64, float64, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: reading MP3 data: %w", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo frames.
	const frameBytes = 4

	frames := len(pcm) / frameBytes
	if frames == 0 {
		return nil, 0, ErrEmptyInput
	}

	mono := make([]float64, frames)
	for i := range frames {
		l := int16(uint16(pcm[i*frameBytes]) | uint16(pcm[i*frameBytes+1])<<8)
		r := int16(uint16(pcm[i*frameBytes+2]) | uint16(pcm[i*frameBytes+3])<<8)
		mono[i] = (float64(l) + float64(r)) / 2 / 32768
	}

	return mono, float64(dec.SampleRate()), nil
}
