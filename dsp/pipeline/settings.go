package pipeline

// VoiceSettings carries the eight user-facing transformation parameters.
// The zero value is not the neutral configuration; use DefaultSettings.
type VoiceSettings struct {
	Pitch          float64
	Timbre         float64
	Depth          float64
	Speed          float64
	Emotion        float64
	Morph          float64
	NoiseReduction float64
	Clarity        float64
}

// DefaultSettings returns the parameter set applied when a caller
// leaves fields unspecified.
func DefaultSettings() VoiceSettings {
	return VoiceSettings{
		Pitch:          0,
		Timbre:         0,
		Depth:          0,
		Speed:          1,
		Emotion:        50,
		Morph:          0,
		NoiseReduction: 40,
		Clarity:        60,
	}
}

// PitchSemitones returns the combined pitch offset in semitones, folding
// the morph amount in at 25 morph units per semitone.
func (s VoiceSettings) PitchSemitones() float64 {
	return s.Pitch + s.Morph/25
}

// StretchRate returns the time-stretch rate, clamped to a minimum of 0.5.
func (s VoiceSettings) StretchRate() float64 {
	if s.Speed < 0.5 {
		return 0.5
	}
	return s.Speed
}
