package pipeline

import (
	"bytes"
	"math"
	"testing"

	"github.com/voiceforge/voiceforge/dsp/codec"
	"github.com/voiceforge/voiceforge/dsp/core"
	"github.com/voiceforge/voiceforge/dsp/signal"
	"github.com/voiceforge/voiceforge/dsp/spectrum"
	"github.com/voiceforge/voiceforge/internal/platform/errors"
)

// identitySettings disables every conditional stage so only decode and
// normalization run.
func identitySettings() VoiceSettings {
	return VoiceSettings{Speed: 1}
}

func encodeSine(t *testing.T, freq, amplitude float64, samples int) []byte {
	t.Helper()

	in, err := signal.NewGenerator(SampleRate).Sine(freq, amplitude, samples)
	if err != nil {
		t.Fatalf("Sine() error = %v", err)
	}

	wavBytes, err := codec.EncodeWAV(in, SampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	return wavBytes
}

func decodeOutput(t *testing.T, wavBytes []byte) []float64 {
	t.Helper()

	out, err := codec.Decode(wavBytes, SampleRate)
	if err != nil {
		t.Fatalf("decoding transform output: %v", err)
	}

	return out
}

func TestTransformIdentityNormalizesOnly(t *testing.T) {
	const samples = SampleRate / 5

	in, _ := signal.NewGenerator(SampleRate).Sine(440, 0.5, samples)
	wavBytes, err := codec.EncodeWAV(in, SampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	outBytes, err := Transform(wavBytes, identitySettings())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	out := decodeOutput(t, outBytes)
	if len(out) != samples {
		t.Fatalf("output length = %d, want %d", len(out), samples)
	}

	// Identity settings scale the 0.5 amplitude sine up to a peak of 1.
	for i := range out {
		if math.Abs(out[i]-in[i]/0.5) > 2e-3 {
			t.Fatalf("sample %d = %v, want %v", i, out[i], in[i]/0.5)
		}
	}
}

func TestTransformNormalizeIdempotent(t *testing.T) {
	wavBytes := encodeSine(t, 330, 0.25, SampleRate/10)

	first, err := Transform(wavBytes, identitySettings())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	second, err := Transform(first, identitySettings())
	if err != nil {
		t.Fatalf("Transform() of own output error = %v", err)
	}

	a, b := decodeOutput(t, first), decodeOutput(t, second)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 2e-3 {
			t.Fatalf("sample %d drifted: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestTransformSilenceStaysSilent(t *testing.T) {
	silence := make([]float64, SampleRate/10)
	wavBytes, err := codec.EncodeWAV(silence, SampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	outBytes, err := Transform(wavBytes, DefaultSettings())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	out := decodeOutput(t, outBytes)
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("sample %d is not finite: %v", i, v)
		}
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence", i, v)
		}
	}
}

func TestTransformSpeedClampedAtHalf(t *testing.T) {
	wavBytes := encodeSine(t, 440, 0.5, SampleRate/5)

	slow := identitySettings()
	slow.Speed = 0.1
	clamped := identitySettings()
	clamped.Speed = 0.5

	outSlow, err := Transform(wavBytes, slow)
	if err != nil {
		t.Fatalf("Transform(speed=0.1) error = %v", err)
	}
	outClamped, err := Transform(wavBytes, clamped)
	if err != nil {
		t.Fatalf("Transform(speed=0.5) error = %v", err)
	}

	if !bytes.Equal(outSlow, outClamped) {
		t.Fatal("speed 0.1 should render identically to speed 0.5")
	}

	// Halving the rate doubles the duration.
	out := decodeOutput(t, outClamped)
	want := 2 * (SampleRate / 5)
	if d := len(out) - want; d < -2 || d > 2 {
		t.Fatalf("stretched length = %d, want ~%d", len(out), want)
	}
}

func TestTransformSpeedOneSkipsStretch(t *testing.T) {
	const samples = SampleRate / 5
	wavBytes := encodeSine(t, 440, 0.5, samples)

	outBytes, err := Transform(wavBytes, identitySettings())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got := len(decodeOutput(t, outBytes)); got != samples {
		t.Fatalf("output length = %d, want %d", got, samples)
	}
}

func TestTransformMorphFoldsIntoPitch(t *testing.T) {
	wavBytes := encodeSine(t, 440, 0.5, SampleRate/5)

	viaPitch := identitySettings()
	viaPitch.Pitch = 2
	viaMorph := identitySettings()
	viaMorph.Morph = 50

	outPitch, err := Transform(wavBytes, viaPitch)
	if err != nil {
		t.Fatalf("Transform(pitch=2) error = %v", err)
	}
	outMorph, err := Transform(wavBytes, viaMorph)
	if err != nil {
		t.Fatalf("Transform(morph=50) error = %v", err)
	}

	if !bytes.Equal(outPitch, outMorph) {
		t.Fatal("morph=50 should render identically to pitch=2")
	}
}

func TestTransformPitchShiftMovesFundamental(t *testing.T) {
	wavBytes := encodeSine(t, 440, 0.5, SampleRate/2)

	up := identitySettings()
	up.Pitch = 12

	outBytes, err := Transform(wavBytes, up)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	out := decodeOutput(t, outBytes)

	// Skip vocoder edge transients before measuring.
	steady := out[4096 : len(out)-4096]
	atSource, err := spectrum.BandPower(steady, SampleRate, 440)
	if err != nil {
		t.Fatalf("BandPower(440) error = %v", err)
	}
	atShifted, err := spectrum.BandPower(steady, SampleRate, 880)
	if err != nil {
		t.Fatalf("BandPower(880) error = %v", err)
	}

	if atShifted <= atSource*10 {
		t.Fatalf("880 Hz power %v should dominate 440 Hz power %v", atShifted, atSource)
	}
}

func TestTransformDefaultsEndToEnd(t *testing.T) {
	const samples = SampleRate // one second
	wavBytes := encodeSine(t, 440, 0.5, samples)

	outBytes, err := Transform(wavBytes, DefaultSettings())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	out := decodeOutput(t, outBytes)
	if len(out) != samples {
		t.Fatalf("output length = %d, want %d", len(out), samples)
	}
	if peak := core.MaxAbs(out); math.Abs(peak-1) > 2e-3 {
		t.Fatalf("peak = %v, want ~1.0", peak)
	}

	// Saturation and filtering must not displace the fundamental.
	atSource, err := spectrum.BandPower(out, SampleRate, 440)
	if err != nil {
		t.Fatalf("BandPower(440) error = %v", err)
	}
	elsewhere, err := spectrum.BandPower(out, SampleRate, 1000)
	if err != nil {
		t.Fatalf("BandPower(1000) error = %v", err)
	}
	if atSource <= elsewhere {
		t.Fatalf("440 Hz power %v should exceed 1000 Hz power %v", atSource, elsewhere)
	}
}

func TestTransformGateAttenuatesQuietTail(t *testing.T) {
	// 70% loud burst, 30% quiet tail. The 20th percentile of |x| then
	// lands inside the quiet tail's amplitude range and the strength
	// factor pushes the threshold above the whole tail.
	const samples = SampleRate / 5
	head := samples * 7 / 10
	buf := make([]float64, samples)
	gen := signal.NewGenerator(SampleRate)
	loud, _ := gen.Sine(440, 0.9, head)
	quiet, _ := gen.Sine(440, 0.01, samples-head)
	copy(buf, loud)
	copy(buf[head:], quiet)

	wavBytes, err := codec.EncodeWAV(buf, SampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	gated := identitySettings()
	gated.NoiseReduction = 40

	gatedBytes, err := Transform(wavBytes, gated)
	if err != nil {
		t.Fatalf("Transform(gated) error = %v", err)
	}
	plainBytes, err := Transform(wavBytes, identitySettings())
	if err != nil {
		t.Fatalf("Transform(plain) error = %v", err)
	}

	gatedOut := decodeOutput(t, gatedBytes)
	plainOut := decodeOutput(t, plainBytes)

	gatedTail, err := spectrum.BandPower(gatedOut[head:], SampleRate, 440)
	if err != nil {
		t.Fatalf("BandPower(gated tail) error = %v", err)
	}
	plainTail, err := spectrum.BandPower(plainOut[head:], SampleRate, 440)
	if err != nil {
		t.Fatalf("BandPower(plain tail) error = %v", err)
	}

	// The whole tail drops by the gate floor gain, so its power falls
	// close to two orders of magnitude.
	if gatedTail*20 > plainTail {
		t.Fatalf("gated tail power = %v, want well below ungated %v", gatedTail, plainTail)
	}
}

func TestTransformDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an audio container at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(tt.data, DefaultSettings())
			if err == nil {
				t.Fatal("expected decode error")
			}
			if !errors.IsKind(err, errors.KindDecode) {
				t.Fatalf("error kind = %v, want decode", err)
			}
		})
	}
}

func TestTransformResampleFailureIsProcessError(t *testing.T) {
	wavBytes := encodeSine(t, 440, 0.5, 2048)

	// Zero the header's sample rate field (canonical bytes 24-27): the
	// container still parses, but rate conversion fails numerically.
	for i := 24; i < 28; i++ {
		wavBytes[i] = 0
	}

	_, err := Transform(wavBytes, DefaultSettings())
	if err == nil {
		t.Fatal("expected resample failure")
	}
	if !errors.IsKind(err, errors.KindProcess) {
		t.Fatalf("error kind = %v, want process", err)
	}
	if errors.IsKind(err, errors.KindDecode) {
		t.Fatalf("resample failure misclassified as decode error: %v", err)
	}
}

func TestDefaultSettingsValues(t *testing.T) {
	s := DefaultSettings()
	want := VoiceSettings{
		Speed:          1,
		Emotion:        50,
		NoiseReduction: 40,
		Clarity:        60,
	}
	if s != want {
		t.Fatalf("DefaultSettings() = %+v, want %+v", s, want)
	}
	if got := s.PitchSemitones(); got != 0 {
		t.Fatalf("PitchSemitones() = %v, want 0", got)
	}
}
