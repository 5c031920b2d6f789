package puhdas

import (
	"errors"
	"fmt"
	"math"
)

// Step is one note of a song. Its pitch is given relative to the pitch of the
// previous step, as an exact interval, so a song is a chain of intervals
// rather than a list of scale degrees.
type Step struct {
	// Interval from the previous step's pitch. Use "1/1" to repeat the
	// pitch. The first step's interval is relative to the song's base
	// frequency.
	Interval Interval `yaml:"interval"`

	// Beats is the length of the step in beats.
	Beats float64 `yaml:"beats"`

	// Hold is the fraction of the step during which the note sounds before
	// it is released; 0 means hold for the whole step.
	Hold float64 `yaml:"hold,omitempty"`

	// Volume of the note, 0 meaning full volume 1.
	Volume float64 `yaml:"volume,omitempty"`

	// Rest makes the step silent. The interval is still applied, so a rest
	// can transpose the chain without sounding.
	Rest bool `yaml:"rest,omitempty"`

	// Chord lists intervals sounded together with the step, each relative
	// to the step's own pitch.
	Chord []Interval `yaml:"chord,omitempty"`
}

// Song is a monophonic-chain composition with optional chords: a base
// frequency, a tempo and a sequence of interval steps.
type Song struct {
	BPM           float64 `yaml:"bpm"`
	BaseFrequency float64 `yaml:"basefrequency"`
	Instrument    Instrument
	Steps         []Step
}

// Copy makes a deep copy of the song.
func (s *Song) Copy() Song {
	steps := make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = step
		if step.Chord != nil {
			chord := make([]Interval, len(step.Chord))
			copy(chord, step.Chord)
			steps[i].Chord = chord
		}
	}
	return Song{BPM: s.BPM, BaseFrequency: s.BaseFrequency, Instrument: s.Instrument.Copy(), Steps: steps}
}

// Validate checks that the song can be rendered: valid tempo, base frequency
// in the hearing range, all steps well-formed and the whole interval chain
// staying inside the hearing range.
func (s *Song) Validate() error {
	if _, err := NewTempo(s.BPM); err != nil {
		return err
	}
	if _, err := checkFrequency(s.BaseFrequency); err != nil {
		return fmt.Errorf("base frequency: %w", err)
	}
	if err := s.Instrument.Validate(); err != nil {
		return fmt.Errorf("instrument: %w", err)
	}
	if len(s.Steps) == 0 {
		return errors.New("song has no steps")
	}
	for i, step := range s.Steps {
		if step.Interval.Numerator() == 0 || step.Interval.Denominator() == 0 {
			return fmt.Errorf("step %d: %w", i, ErrInvalidInterval)
		}
		if step.Beats <= 0 || math.IsNaN(step.Beats) || math.IsInf(step.Beats, 0) {
			return fmt.Errorf("step %d: %w", i, ErrInvalidDuration)
		}
		if step.Hold < 0 || step.Hold > 1 || math.IsNaN(step.Hold) {
			return fmt.Errorf("step %d: hold must be within [0, 1]", i)
		}
		if step.Volume < 0 || math.IsNaN(step.Volume) || math.IsInf(step.Volume, 0) {
			return fmt.Errorf("step %d: %w", i, ErrInvalidAmplitude)
		}
		for j, c := range step.Chord {
			if c.Numerator() == 0 || c.Denominator() == 0 {
				return fmt.Errorf("step %d chord note %d: %w", i, j, ErrInvalidInterval)
			}
		}
	}
	if _, err := s.Frequencies(); err != nil {
		return err
	}
	return nil
}

// Frequencies walks the interval chain and returns the pitch of every step in
// Hz. The chain is accumulated as an exact rational relative to the base
// frequency, so no rounding error builds up over long songs; only the final
// per-step conversion to Hz is floating point.
func (s *Song) Frequencies() ([]float64, error) {
	ret := make([]float64, len(s.Steps))
	acc := Unison
	for i, step := range s.Steps {
		var err error
		if acc, err = acc.Mul(step.Interval); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if ret[i], err = checkFrequency(s.BaseFrequency * acc.Ratio()); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return ret, nil
}

// TotalBeats returns the length of the song in beats.
func (s *Song) TotalBeats() float64 {
	total := 0.0
	for _, step := range s.Steps {
		total += step.Beats
	}
	return total
}
