package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/voiceforge/voiceforge/dsp/signal"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in, err := signal.NewGenerator(DefaultSampleRate).Sine(440, 0.5, DefaultSampleRate/10)
	if err != nil {
		t.Fatalf("Sine() error = %v", err)
	}

	wavBytes, err := EncodeWAV(in, DefaultSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	if !isWAV(wavBytes) {
		t.Fatal("encoded bytes are not a RIFF/WAVE container")
	}

	out, err := Decode(wavBytes, DefaultSampleRate)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}

	// 16-bit quantization bounds the round-trip error.
	var maxErr float64
	for i := range in {
		if e := math.Abs(out[i] - in[i]); e > maxErr {
			maxErr = e
		}
	}
	if maxErr > 1.0/32000 {
		t.Fatalf("round-trip error = %v, want < %v", maxErr, 1.0/32000)
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	if _, err := EncodeWAV(nil, DefaultSampleRate); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("error = %v, want ErrNoSamples", err)
	}
	if _, err := EncodeWAV([]float64{0.1}, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestEncodeWAVClampsOutOfRange(t *testing.T) {
	wavBytes, err := EncodeWAV([]float64{2, -2, 0}, DefaultSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	out, err := Decode(wavBytes, DefaultSampleRate)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if math.Abs(out[0]-1) > 1e-3 || math.Abs(out[1]+1) > 1e-3 {
		t.Fatalf("clamped samples decoded as %v, %v, want ~1, ~-1", out[0], out[1])
	}
}

// encodeEightBitWAV writes unsigned 8-bit mono PCM the way a real 8-bit
// source file stores it, with samples in [0, 255] around a 128 midpoint.
func encodeEightBitWAV(t *testing.T, data []int) []byte {
	t.Helper()

	var ws writeSeeker

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  DefaultSampleRate,
		},
		Data:           data,
		SourceBitDepth: 8,
	}

	enc := wav.NewEncoder(&ws, DefaultSampleRate, 8, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("writing 8-bit WAV: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalizing 8-bit WAV: %v", err)
	}

	return ws.Bytes()
}

func TestDecodeEightBitSilence(t *testing.T) {
	data := make([]int, 512)
	for i := range data {
		data[i] = 128
	}

	out, err := Decode(encodeEightBitWAV(t, data), DefaultSampleRate)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out) != len(data) {
		t.Fatalf("len = %d, want %d", len(out), len(data))
	}

	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0", i, v)
		}
	}
}

func TestDecodeEightBitRoundTrip(t *testing.T) {
	in, err := signal.NewGenerator(DefaultSampleRate).Sine(440, 0.5, 2048)
	if err != nil {
		t.Fatalf("Sine() error = %v", err)
	}

	data := make([]int, len(in))
	for i, v := range in {
		data[i] = 128 + int(math.Round(v*127))
	}

	out, err := Decode(encodeEightBitWAV(t, data), DefaultSampleRate)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	// 8-bit quantization bounds the round-trip error.
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1.0/100 {
			t.Fatalf("sample %d = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDecodeRejectsFloatWAV(t *testing.T) {
	wavBytes, err := EncodeWAV([]float64{0.5, -0.5, 0.25, 0}, DefaultSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	// Rewrite the fmt chunk's audio format code from integer PCM (1) to
	// IEEE float (3). The canonical header places it at byte 20.
	wavBytes[20] = 3
	wavBytes[21] = 0

	if _, err := Decode(wavBytes, DefaultSampleRate); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodeResampleFailureIsDistinguishable(t *testing.T) {
	wavBytes, err := EncodeWAV([]float64{0.5, -0.5, 0.25, 0}, DefaultSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	// Zero the sample rate field (canonical header bytes 24-27) so the
	// container parses but rate conversion cannot.
	for i := 24; i < 28; i++ {
		wavBytes[i] = 0
	}

	_, err = Decode(wavBytes, DefaultSampleRate)
	if !errors.Is(err, ErrResample) {
		t.Fatalf("error = %v, want ErrResample", err)
	}
	if errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrEmptyInput) {
		t.Fatalf("resample failure misclassified as input error: %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"nil", nil, ErrEmptyInput},
		{"short", []byte("RIFF"), ErrEmptyInput},
		{"unknown container", []byte("this is definitely not audio data"), ErrUnsupportedFormat},
		{"riff but not wave", append([]byte("RIFF\x00\x00\x00\x00JUNK"), make([]byte, 32)...), ErrUnsupportedFormat},
	}
	for _, tc := range tests {
		if _, err := Decode(tc.data, DefaultSampleRate); !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestDecodeResamplesToTargetRate(t *testing.T) {
	const sourceRate = 22050

	in, _ := signal.NewGenerator(sourceRate).Sine(440, 0.5, sourceRate) // 1 second
	wavBytes, err := EncodeWAV(in, sourceRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	out, err := Decode(wavBytes, DefaultSampleRate)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	// 1 second at the target rate, within rational-approximation slack.
	if d := len(out) - DefaultSampleRate; d < -2 || d > 2 {
		t.Fatalf("len = %d, want ~%d", len(out), DefaultSampleRate)
	}
}

func TestDecodeTargetRateValidation(t *testing.T) {
	wavBytes, _ := EncodeWAV([]float64{0.5, -0.5, 0.25}, DefaultSampleRate)
	if _, err := Decode(wavBytes, 0); err == nil {
		t.Fatal("expected error for zero target rate")
	}
}

func TestMP3Sniffing(t *testing.T) {
	if !isMP3([]byte("ID3\x04\x00\x00\x00\x00\x00\x00")) {
		t.Fatal("ID3-tagged data should sniff as MP3")
	}
	if !isMP3([]byte{0xFF, 0xFB, 0x90, 0x00}) {
		t.Fatal("frame-sync data should sniff as MP3")
	}
	if isMP3([]byte("RIFF")) {
		t.Fatal("RIFF data should not sniff as MP3")
	}
}

func TestWriteSeeker(t *testing.T) {
	var ws writeSeeker

	if _, err := ws.Write([]byte("abcdef")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := ws.Seek(1, 0); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if _, err := ws.Write([]byte("XY")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if got := string(ws.Bytes()); got != "aXYdef" {
		t.Fatalf("Bytes() = %q, want %q", got, "aXYdef")
	}

	if _, err := ws.Seek(-10, 0); err == nil {
		t.Fatal("expected error for negative position")
	}
}
