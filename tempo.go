package puhdas

import "math"

// Tempo is the playing speed of a song, stored as the duration of one beat in
// seconds.
type Tempo struct {
	beatDuration float64
}

// NewTempo builds a tempo from beats per minute.
func NewTempo(bpm float64) (Tempo, error) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return Tempo{}, ErrInvalidTempo
	}
	return Tempo{beatDuration: 60 / bpm}, nil
}

// BPM returns the tempo in beats per minute.
func (t Tempo) BPM() float64 { return 60 / t.beatDuration }

// BeatDuration returns the duration of one beat in seconds.
func (t Tempo) BeatDuration() float64 { return t.beatDuration }

// SamplesPerBeat returns the number of samples in one beat at the given
// sample rate, rounded to the nearest whole sample.
func (t Tempo) SamplesPerBeat(sampleRate int) int {
	return int(math.Round(t.beatDuration * float64(sampleRate)))
}
