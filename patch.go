package puhdas

import (
	"errors"
	"fmt"
	"math"
)

// Overtone is one harmonic partial on top of a note's fundamental. Its pitch
// is given as an exact interval relative to the fundamental, so the partial
// follows every modulation of the fundamental proportionally.
type Overtone struct {
	// Interval of the partial relative to the fundamental, e.g. "2/1" for
	// the first octave overtone.
	Interval Interval `yaml:"interval"`

	// Weight is the relative amplitude of the partial. The synth normalizes
	// the weights of a note so they sum to 1.
	Weight float64 `yaml:"weight"`

	// HalfLife is an optional per-overtone exponential decay in seconds;
	// 0 means the partial only follows the note's amplitude function.
	// Higher partials of plucked instruments typically decay faster.
	HalfLife float64 `yaml:"halflife,omitempty"`
}

// Vibrato describes proportional pitch modulation.
type Vibrato struct {
	Rate  float64  `yaml:"rate"`  // Hz
	Depth Interval `yaml:"depth"` // maximum shift away from the center pitch
}

// Tremolo describes amplitude modulation.
type Tremolo struct {
	Rate   float64 `yaml:"rate"`   // Hz
	Extent float64 `yaml:"extent"` // ratio of maximum shift, > 1
}

// Instrument describes how notes of one timbre are synthesized: the overtone
// content and the envelope/modulation parameters. Instruments are plain data
// and serialize to yaml; the synth package turns them into live voices.
type Instrument struct {
	Name string `yaml:",omitempty"`

	// Overtones above the fundamental. May be empty for a pure sine tone.
	Overtones []Overtone `yaml:",omitempty"`

	// Attack is a linear fade-in in seconds; 0 means only the synth's own
	// unconditional smooth-start ramp is applied.
	Attack float64 `yaml:",omitempty"`

	// HalfLife is the exponential decay of the note in seconds; 0 means the
	// note sustains at a constant level until released.
	HalfLife float64 `yaml:"halflife,omitempty"`

	Vibrato *Vibrato `yaml:",omitempty"`
	Tremolo *Tremolo `yaml:",omitempty"`
}

// Copy makes a deep copy of the instrument.
func (instr *Instrument) Copy() Instrument {
	overtones := make([]Overtone, len(instr.Overtones))
	copy(overtones, instr.Overtones)
	ret := Instrument{Name: instr.Name, Overtones: overtones, Attack: instr.Attack, HalfLife: instr.HalfLife}
	if instr.Vibrato != nil {
		v := *instr.Vibrato
		ret.Vibrato = &v
	}
	if instr.Tremolo != nil {
		t := *instr.Tremolo
		ret.Tremolo = &t
	}
	return ret
}

// Validate checks all instrument parameters the same way the corresponding
// function constructors would.
func (instr *Instrument) Validate() error {
	for _, o := range instr.Overtones {
		if o.Interval.Numerator() == 0 || o.Interval.Denominator() == 0 {
			return fmt.Errorf("overtone interval: %w", ErrInvalidInterval)
		}
		if o.Weight < 0 || math.IsNaN(o.Weight) || math.IsInf(o.Weight, 0) {
			return fmt.Errorf("overtone weight: %w", ErrInvalidAmplitude)
		}
		if o.HalfLife < 0 || math.IsNaN(o.HalfLife) {
			return fmt.Errorf("overtone halflife: %w", ErrInvalidHalfLife)
		}
	}
	if instr.Attack < 0 || math.IsNaN(instr.Attack) {
		return fmt.Errorf("attack: %w", ErrInvalidDuration)
	}
	if instr.HalfLife < 0 || math.IsNaN(instr.HalfLife) {
		return fmt.Errorf("halflife: %w", ErrInvalidHalfLife)
	}
	if instr.Vibrato != nil {
		if _, err := NewFrequencyVibrato(FrequencyConst{frequency: 440}, instr.Vibrato.Rate, instr.Vibrato.Depth); err != nil {
			return fmt.Errorf("vibrato: %w", err)
		}
	}
	if instr.Tremolo != nil {
		if _, err := NewAmplitudeTremolo(instr.Tremolo.Rate, instr.Tremolo.Extent); err != nil {
			return fmt.Errorf("tremolo: %w", err)
		}
	}
	return nil
}

// FrequencyProfile builds the frequency function of a note played at the
// given base frequency on this instrument.
func (instr *Instrument) FrequencyProfile(frequency float64) (FrequencyFunction, error) {
	base, err := NewFrequencyConst(frequency)
	if err != nil {
		return nil, err
	}
	if instr.Vibrato == nil {
		return base, nil
	}
	return NewFrequencyVibrato(base, instr.Vibrato.Rate, instr.Vibrato.Depth)
}

// AmplitudeProfile builds the amplitude function of a note played at the
// given volume on this instrument: volume × attack × decay × tremolo, with
// the parts the instrument does not use left out.
func (instr *Instrument) AmplitudeProfile(volume float64) (AmplitudeFunction, error) {
	level, err := NewAmplitudeConst(volume)
	if err != nil {
		return nil, err
	}
	parts := []AmplitudeFunction{level}
	if instr.Attack > 0 {
		fade, err := NewAmplitudeFadeIn(instr.Attack)
		if err != nil {
			return nil, err
		}
		parts = append(parts, fade)
	}
	if instr.HalfLife > 0 {
		decay, err := NewAmplitudeDecayExp(1, instr.HalfLife)
		if err != nil {
			return nil, err
		}
		parts = append(parts, decay)
	}
	if instr.Tremolo != nil {
		tremolo, err := NewAmplitudeTremolo(instr.Tremolo.Rate, instr.Tremolo.Extent)
		if err != nil {
			return nil, err
		}
		parts = append(parts, tremolo)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return NewAmplitudeProduct(parts...)
}

// Patch is a named collection of instruments.
type Patch []Instrument

// Copy makes a deep copy of the patch.
func (p Patch) Copy() Patch {
	instruments := make([]Instrument, len(p))
	for i, instr := range p {
		instruments[i] = instr.Copy()
	}
	return instruments
}

// InstrumentForName returns the index of the named instrument.
func (p Patch) InstrumentForName(name string) (int, error) {
	for i, instr := range p {
		if instr.Name == name {
			return i, nil
		}
	}
	return 0, errors.New("patch has no instrument named " + name)
}
