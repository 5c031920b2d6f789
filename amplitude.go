package puhdas

import (
	"math"
)

// AmplitudeFunction produces the instantaneous amplitude of a note as a
// function of the time elapsed since the note started. Evaluation never
// fails and never allocates; all validation happens at construction.
//
// Every implementation returns exactly 0 before the note's logical start
// (t < 0) and after its logical end, and never a negative value.
type AmplitudeFunction interface {
	// AmplitudeAt returns the amplitude at t seconds from note start,
	// nominally in [0, 1] but briefly above 1 for overshoot effects.
	AmplitudeAt(t float64) float64
}

// AmplitudeConst is an amplitude that does not change over time.
type AmplitudeConst struct {
	level float64
}

// NewAmplitudeConst rejects negative or non-finite levels.
func NewAmplitudeConst(level float64) (AmplitudeConst, error) {
	if level < 0 || math.IsNaN(level) || math.IsInf(level, 0) {
		return AmplitudeConst{}, ErrInvalidAmplitude
	}
	return AmplitudeConst{level: level}, nil
}

func (a AmplitudeConst) AmplitudeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	return a.level
}

// AmplitudeDecayExp decays exponentially from a starting level, losing half
// of its value every half-life.
type AmplitudeDecayExp struct {
	level    float64
	halfLife float64
}

// NewAmplitudeDecayExp builds an exponential decay from level with the given
// half-life in seconds.
func NewAmplitudeDecayExp(level, halfLife float64) (AmplitudeDecayExp, error) {
	if level < 0 || math.IsNaN(level) || math.IsInf(level, 0) {
		return AmplitudeDecayExp{}, ErrInvalidAmplitude
	}
	if halfLife <= 0 || math.IsNaN(halfLife) {
		return AmplitudeDecayExp{}, ErrInvalidHalfLife
	}
	return AmplitudeDecayExp{level: level, halfLife: halfLife}, nil
}

func (a AmplitudeDecayExp) AmplitudeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	return a.level * math.Exp2(-t/a.halfLife)
}

// AmplitudeFadeIn rises linearly from 0 to 1 over a duration and stays at 1
// afterwards.
type AmplitudeFadeIn struct {
	duration float64
}

// NewAmplitudeFadeIn builds a linear fade-in over duration seconds.
func NewAmplitudeFadeIn(duration float64) (AmplitudeFadeIn, error) {
	if duration <= 0 || math.IsNaN(duration) {
		return AmplitudeFadeIn{}, ErrInvalidDuration
	}
	return AmplitudeFadeIn{duration: duration}, nil
}

func (a AmplitudeFadeIn) AmplitudeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t >= a.duration {
		return 1
	}
	return t / a.duration
}

// AmplitudeFadeOut falls linearly from 1 to 0 over a duration; after the
// duration, the note has logically ended and the amplitude is exactly 0.
type AmplitudeFadeOut struct {
	duration float64
}

// NewAmplitudeFadeOut builds a linear fade-out over duration seconds.
func NewAmplitudeFadeOut(duration float64) (AmplitudeFadeOut, error) {
	if duration <= 0 || math.IsNaN(duration) {
		return AmplitudeFadeOut{}, ErrInvalidDuration
	}
	return AmplitudeFadeOut{duration: duration}, nil
}

func (a AmplitudeFadeOut) AmplitudeAt(t float64) float64 {
	if t < 0 || t >= a.duration {
		return 0
	}
	return 1 - t/a.duration
}

// AmplitudeTremolo varies the amplitude sinusoidally between 1 and
// 1/extent², normalized so it never exceeds 1: the output is
// extent^sin(2π·rate·t) / extent. Extent must be greater than 1.
type AmplitudeTremolo struct {
	rate       float64
	extent     float64
	normalized float64
}

// NewAmplitudeTremolo builds a tremolo with the given rate in Hz and extent
// ratio of the maximum shift away from the base amplitude.
func NewAmplitudeTremolo(rate, extent float64) (AmplitudeTremolo, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return AmplitudeTremolo{}, ErrInvalidRate
	}
	if extent <= 1 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		return AmplitudeTremolo{}, ErrInvalidAmplitude
	}
	return AmplitudeTremolo{rate: rate, extent: extent, normalized: 1 / extent}, nil
}

func (a AmplitudeTremolo) AmplitudeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	return a.normalized * math.Pow(a.extent, math.Sin(2*math.Pi*a.rate*t))
}

// AmplitudeProduct multiplies the values of its sub-functions, e.g.
// decay × tremolo. An empty product is not allowed.
type AmplitudeProduct struct {
	functions []AmplitudeFunction
}

// NewAmplitudeProduct combines sub-functions into their pointwise product.
func NewAmplitudeProduct(functions ...AmplitudeFunction) (AmplitudeProduct, error) {
	if len(functions) == 0 {
		return AmplitudeProduct{}, ErrInvalidAmplitude
	}
	for _, f := range functions {
		if f == nil {
			return AmplitudeProduct{}, ErrInvalidAmplitude
		}
	}
	fns := make([]AmplitudeFunction, len(functions))
	copy(fns, functions)
	return AmplitudeProduct{functions: fns}, nil
}

func (a AmplitudeProduct) AmplitudeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	result := 1.0
	for _, f := range a.functions {
		result *= f.AmplitudeAt(t)
	}
	return result
}

// AmplitudeSum adds weighted sub-functions. If the weights sum to more than
// 1, they are normalized so the total never exceeds 1; smaller sums are kept
// as given.
type AmplitudeSum struct {
	functions []AmplitudeFunction
	weights   []float64
}

// NewAmplitudeSum combines sub-functions into their weighted pointwise sum.
// The number of weights must match the number of functions and all weights
// must be non-negative with a positive total.
func NewAmplitudeSum(functions []AmplitudeFunction, weights []float64) (AmplitudeSum, error) {
	if len(functions) == 0 || len(functions) != len(weights) {
		return AmplitudeSum{}, ErrInvalidAmplitude
	}
	sum := 0.0
	for i, w := range weights {
		if functions[i] == nil || w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return AmplitudeSum{}, ErrInvalidAmplitude
		}
		sum += w
	}
	if sum == 0 {
		return AmplitudeSum{}, ErrInvalidAmplitude
	}
	ws := make([]float64, len(weights))
	copy(ws, weights)
	if sum > 1 {
		for i := range ws {
			ws[i] /= sum
		}
	}
	fns := make([]AmplitudeFunction, len(functions))
	copy(fns, functions)
	return AmplitudeSum{functions: fns, weights: ws}, nil
}

func (a AmplitudeSum) AmplitudeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	result := 0.0
	for i, f := range a.functions {
		result += a.weights[i] * f.AmplitudeAt(t)
	}
	return result
}
