package puhdas

import (
	"math"
)

// FrequencyFunction produces the instantaneous frequency of a note as a
// function of the time elapsed since the note started. Implementations are
// pure: evaluating the same t twice gives the same frequency, so rendering is
// deterministic and the oscillator can integrate phase itself.
type FrequencyFunction interface {
	// FrequencyAt returns the frequency in Hz at t seconds from note start.
	FrequencyAt(t float64) float64
}

// FrequencyConst is a frequency that does not change over time.
type FrequencyConst struct {
	frequency float64
}

// NewFrequencyConst validates the frequency against the hearing range.
func NewFrequencyConst(frequency float64) (FrequencyConst, error) {
	f, err := checkFrequency(frequency)
	if err != nil {
		return FrequencyConst{}, err
	}
	return FrequencyConst{frequency: f}, nil
}

func (f FrequencyConst) FrequencyAt(t float64) float64 {
	return f.frequency
}

// FrequencyGlide ramps linearly from one frequency to another over a
// duration, then holds the target.
type FrequencyGlide struct {
	from, to float64
	duration float64
}

// NewFrequencyGlide builds a linear glide; both endpoints must be in the
// hearing range and the duration positive.
func NewFrequencyGlide(from, to, duration float64) (FrequencyGlide, error) {
	f0, err := checkFrequency(from)
	if err != nil {
		return FrequencyGlide{}, err
	}
	f1, err := checkFrequency(to)
	if err != nil {
		return FrequencyGlide{}, err
	}
	if duration <= 0 || math.IsNaN(duration) {
		return FrequencyGlide{}, ErrInvalidDuration
	}
	return FrequencyGlide{from: f0, to: f1, duration: duration}, nil
}

func (f FrequencyGlide) FrequencyAt(t float64) float64 {
	if t <= 0 {
		return f.from
	}
	if t >= f.duration {
		return f.to
	}
	return f.from + (f.to-f.from)*(t/f.duration)
}

// FrequencyVibrato modulates another frequency function sinusoidally. The
// depth is an interval, not a Hz offset: the output swings between
// inner·depth and inner/depth, so the modulation is proportional and two
// voices locked by an interval stay locked while both vibrate.
type FrequencyVibrato struct {
	inner FrequencyFunction
	rate  float64
	depth float64 // ratio of the depth interval
}

// NewFrequencyVibrato wraps inner with a vibrato of the given rate in Hz and
// depth interval.
func NewFrequencyVibrato(inner FrequencyFunction, rate float64, depth Interval) (FrequencyVibrato, error) {
	if inner == nil {
		return FrequencyVibrato{}, ErrInvalidFrequency
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return FrequencyVibrato{}, ErrInvalidRate
	}
	if depth.Numerator() == 0 || depth.Denominator() == 0 {
		return FrequencyVibrato{}, ErrInvalidInterval
	}
	return FrequencyVibrato{inner: inner, rate: rate, depth: depth.Ratio()}, nil
}

func (f FrequencyVibrato) FrequencyAt(t float64) float64 {
	return f.inner.FrequencyAt(t) * math.Pow(f.depth, math.Sin(2*math.Pi*f.rate*t))
}
