package codec

import (
	"errors"
	"fmt"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNoSamples indicates an attempt to encode an empty buffer.
var ErrNoSamples = errors.New("codec: no samples to encode")

// EncodeWAV writes a mono float buffer as a 16-bit PCM WAV file at the
// given sample rate and returns the raw bytes. This bit depth is part of
// the public output contract; downstream consumers depend on it.
//
// Samples are expected in [-1, 1]; values outside that range are clamped
// during quantization.
func EncodeWAV(samples []float64, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("codec: sample rate must be > 0: %d", sampleRate)
	}

	const bitDepth = 16

	data := make([]int, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}

		data[i] = int(v * 32767)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	var ws writeSeeker

	enc := wav.NewEncoder(&ws, sampleRate, bitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("codec: writing WAV data: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("codec: finalizing WAV file: %w", err)
	}

	return ws.Bytes(), nil
}
