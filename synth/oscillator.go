package synth

import (
	"math"

	"github.com/puhdas/puhdas"
)

// Partial is one sine component of a voice. Its frequency is a fixed ratio of
// the voice's instantaneous fundamental, so every partial follows glides and
// vibrato proportionally and the voice keeps its harmonic spectrum under any
// modulation.
type Partial struct {
	// Ratio of the partial's frequency to the fundamental.
	Ratio float64

	// Weight is the amplitude share of the partial. The weights of a voice
	// are normalized to sum to 1 when the voice starts.
	Weight float64

	// HalfLife is an optional exponential decay in seconds applied to this
	// partial only; 0 means no extra decay.
	HalfLife float64
}

// PartialsForInstrument expands an instrument's overtone list into the
// partial set of a voice: the fundamental at ratio 1 plus one partial per
// overtone. The fundamental gets weight 1 relative to the overtone weights
// before normalization.
func PartialsForInstrument(instr *puhdas.Instrument) []Partial {
	partials := make([]Partial, 0, len(instr.Overtones)+1)
	partials = append(partials, Partial{Ratio: 1, Weight: 1})
	for _, o := range instr.Overtones {
		partials = append(partials, Partial{
			Ratio:    o.Interval.Ratio(),
			Weight:   o.Weight,
			HalfLife: o.HalfLife,
		})
	}
	return partials
}

// oscillator is the additive synthesis state of one voice: per-partial phase
// accumulators. Phase is integrated sample by sample from the instantaneous
// frequency, never recomputed from absolute time, so a modulated fundamental
// produces a continuous waveform with no phase jumps.
type oscillator struct {
	partials []Partial
	phases   []float64
}

func newOscillator(partials []Partial) oscillator {
	if len(partials) == 0 {
		partials = []Partial{{Ratio: 1, Weight: 1}}
	}
	sum := 0.0
	for _, p := range partials {
		sum += p.Weight
	}
	normalized := make([]Partial, len(partials))
	copy(normalized, partials)
	if sum > 0 {
		for i := range normalized {
			normalized[i].Weight /= sum
		}
	}
	return oscillator{partials: normalized, phases: make([]float64, len(normalized))}
}

// sample produces one sample for the given instantaneous fundamental
// frequency and elapsed time, then advances all partial phases by one sample
// period. Partials pushed beyond the audible band by their ratio fall silent
// instead of aliasing.
func (o *oscillator) sample(fundamental, elapsed, sampleTime float64) float64 {
	out := 0.0
	nyquist := 0.5 / sampleTime
	for i := range o.partials {
		p := &o.partials[i]
		f := fundamental * p.Ratio
		if f < nyquist {
			w := p.Weight
			if p.HalfLife > 0 {
				w *= math.Exp2(-elapsed / p.HalfLife)
			}
			out += w * math.Sin(o.phases[i])
		}
		o.phases[i] += 2 * math.Pi * f * sampleTime
		if o.phases[i] >= 2*math.Pi {
			// Wrapping keeps the accumulator small so float error
			// stays bounded over arbitrarily long notes.
			o.phases[i] = math.Mod(o.phases[i], 2*math.Pi)
		}
	}
	return out
}
