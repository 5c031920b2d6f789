package puhdas

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Interval is a harmonic musical interval, represented by an exact rational
// number. It is always stored reduced to lowest terms, so two intervals are
// the same interval exactly when their numerators and denominators are equal;
// no floating point comparison is ever needed. The zero value is not a valid
// interval, use NewInterval.
type Interval struct {
	numerator   uint32
	denominator uint32
}

// Unison is the 1/1 interval.
var Unison = Interval{1, 1}

// Octave is the 2/1 interval.
var Octave = Interval{2, 1}

// NewInterval returns the interval numerator/denominator reduced to lowest
// terms. Zero components are rejected with ErrInvalidInterval, because
// frequencies can be neither zero nor infinite.
func NewInterval(numerator, denominator uint32) (Interval, error) {
	if numerator == 0 || denominator == 0 {
		return Interval{}, fmt.Errorf("%w: %d/%d", ErrInvalidInterval, numerator, denominator)
	}
	d := gcd(numerator, denominator)
	return Interval{numerator / d, denominator / d}, nil
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Numerator returns the numerator of the reduced ratio.
func (i Interval) Numerator() uint32 { return i.numerator }

// Denominator returns the denominator of the reduced ratio.
func (i Interval) Denominator() uint32 { return i.denominator }

// Ratio returns the frequency ratio of the interval as a float. This is the
// only place where the exact rational is converted to floating point, so no
// rounding error accumulates in interval arithmetic.
func (i Interval) Ratio() float64 {
	return float64(i.numerator) / float64(i.denominator)
}

// Reciprocal returns the ratio of the inverted interval as a float.
func (i Interval) Reciprocal() float64 {
	return float64(i.denominator) / float64(i.numerator)
}

// Invert returns the interval turned upside down, e.g. the inversion of 3/2
// is 2/3. Composing an interval with its inversion yields the unison.
func (i Interval) Invert() Interval {
	return Interval{i.denominator, i.numerator}
}

// Mul composes two intervals: stacking a 3/2 on a 4/3 gives 2/1. The result
// is reduced; ErrOverflow is returned if the reduced result does not fit the
// rational representation.
func (i Interval) Mul(o Interval) (Interval, error) {
	return makeReduced(uint64(i.numerator)*uint64(o.numerator), uint64(i.denominator)*uint64(o.denominator))
}

// Div composes the interval with the inversion of o, i.e. the interval from
// o to i.
func (i Interval) Div(o Interval) (Interval, error) {
	return makeReduced(uint64(i.numerator)*uint64(o.denominator), uint64(i.denominator)*uint64(o.numerator))
}

func makeReduced(num, den uint64) (Interval, error) {
	if num == 0 || den == 0 {
		return Interval{}, ErrInvalidInterval
	}
	d := gcd64(num, den)
	num /= d
	den /= d
	if num > math.MaxUint32 || den > math.MaxUint32 {
		return Interval{}, fmt.Errorf("%w: %d/%d", ErrOverflow, num, den)
	}
	return Interval{uint32(num), uint32(den)}, nil
}

func gcd64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// IsHarmonic reports whether the interval is expressible with a denominator
// no greater than maxDenominator, the harmonic-series cutoff. Since the
// interval is always in lowest terms, this is a plain comparison.
func (i Interval) IsHarmonic(maxDenominator uint32) bool {
	return i.denominator != 0 && i.denominator <= maxDenominator
}

// Apply transposes a frequency upwards by the interval. The result is checked
// against the hearing range.
func (i Interval) Apply(frequency float64) (float64, error) {
	return checkFrequency(frequency * i.Ratio())
}

// ApplyInverse transposes a frequency downwards by the interval.
func (i Interval) ApplyInverse(frequency float64) (float64, error) {
	return checkFrequency(frequency * i.Reciprocal())
}

func checkFrequency(frequency float64) (float64, error) {
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) || frequency <= 0 {
		return 0, ErrInvalidFrequency
	}
	if frequency < ToneFrequencyMin {
		return 0, fmt.Errorf("%w: %g Hz", ErrFrequencyTooLow, frequency)
	}
	if frequency > ToneFrequencyMax {
		return 0, fmt.Errorf("%w: %g Hz", ErrFrequencyTooHigh, frequency)
	}
	return frequency, nil
}

// Name gives the conventional name of the interval, if it has one. The
// direction of the interval is ignored: 3/2 and 2/3 are both a perfect
// fifth. See https://en.wikipedia.org/wiki/List_of_pitch_intervals
func (i Interval) Name() string {
	n, d := i.numerator, i.denominator
	if n < d {
		n, d = d, n
	}
	switch [2]uint32{n, d} {
	case [2]uint32{1, 1}:
		return "unison"
	case [2]uint32{2, 1}:
		return "octave"
	case [2]uint32{3, 2}:
		return "perfect fifth"
	case [2]uint32{4, 3}:
		return "perfect fourth"
	case [2]uint32{5, 4}:
		return "major third"
	case [2]uint32{5, 3}:
		return "major sixth"
	case [2]uint32{6, 5}:
		return "minor third"
	case [2]uint32{7, 6}:
		return "septimal minor third"
	case [2]uint32{7, 5}:
		return "lesser septimal tritone"
	case [2]uint32{7, 4}:
		return "augmented sixth"
	case [2]uint32{8, 7}:
		return "septimal major second"
	case [2]uint32{8, 5}:
		return "minor sixth"
	case [2]uint32{9, 8}:
		return "major second"
	case [2]uint32{9, 7}:
		return "septimal major third"
	case [2]uint32{9, 5}:
		return "minor seventh"
	case [2]uint32{10, 9}:
		return "minor tone"
	case [2]uint32{10, 7}:
		return "greater septimal tritone"
	case [2]uint32{11, 8}:
		return "lesser undecimal tritone"
	case [2]uint32{13, 8}:
		return "acute minor sixth"
	case [2]uint32{15, 8}:
		return "major seventh"
	case [2]uint32{16, 15}:
		return "semitone"
	case [2]uint32{16, 9}:
		return "grave minor seventh"
	case [2]uint32{31, 16}:
		return "augmented seventh"
	case [2]uint32{45, 32}:
		return "augmented fourth"
	case [2]uint32{64, 45}:
		return "diminished fifth"
	}
	return ""
}

func (i Interval) String() string {
	return fmt.Sprintf("%d/%d", i.numerator, i.denominator)
}

// MarshalYAML serializes the interval as the string "n/d".
func (i Interval) MarshalYAML() (interface{}, error) {
	if i.numerator == 0 || i.denominator == 0 {
		return nil, ErrInvalidInterval
	}
	return i.String(), nil
}

// UnmarshalYAML parses an interval from the string "n/d". A bare integer is
// accepted as n/1.
func (i *Interval) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("interval should be a string like \"3/2\": %v", err)
	}
	var n, d uint32
	if _, err := fmt.Sscanf(s, "%d/%d", &n, &d); err != nil {
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return fmt.Errorf("could not parse interval %q: %w", s, ErrInvalidInterval)
		}
		d = 1
	}
	parsed, err := NewInterval(n, d)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// justSemitones maps the twelve chromatic semitones to their just-intonation
// ratios, so that scale-based inputs (e.g. MIDI keys) can be bent onto the
// harmonic grid.
var justSemitones = [12]Interval{
	{1, 1},   // unison
	{16, 15}, // semitone
	{9, 8},   // major second
	{6, 5},   // minor third
	{5, 4},   // major third
	{4, 3},   // perfect fourth
	{45, 32}, // augmented fourth
	{3, 2},   // perfect fifth
	{8, 5},   // minor sixth
	{5, 3},   // major sixth
	{9, 5},   // minor seventh
	{15, 8},  // major seventh
}

// JustInterval returns the just-intonation interval for a chromatic offset of
// the given number of semitones from a root, negative offsets meaning
// downward intervals. Offsets beyond ±10 octaves fail with ErrOverflow.
func JustInterval(semitones int) (Interval, error) {
	octaves := semitones / 12
	step := semitones % 12
	if step < 0 {
		step += 12
		octaves--
	}
	if octaves < -10 || octaves > 10 {
		return Interval{}, ErrOverflow
	}
	i := justSemitones[step]
	if octaves >= 0 {
		return makeReduced(uint64(i.numerator)<<uint(octaves), uint64(i.denominator))
	}
	return makeReduced(uint64(i.numerator), uint64(i.denominator)<<uint(-octaves))
}
