// Package puhdas contains the pure domain types of a scaleless,
// just-intonation synthesis engine: exact harmonic intervals, time-varying
// frequency and amplitude functions, instrument descriptions and songs. Pitch
// is never picked from a fixed scale; every frequency is derived from the
// previous one through an exact rational interval, so all simultaneous and
// successive tones stay in small-integer-ratio relationships.
//
// The actual sample rendering lives in the synth package; audio output and
// MIDI input adapters live in the oto and midi packages.
package puhdas

const (
	// ToneFrequencyMin is the lowest producible frequency, in Hz. Frequencies
	// below it are rejected rather than rendered.
	ToneFrequencyMin = 5.0

	// ToneFrequencyMax is the highest producible frequency, in Hz.
	ToneFrequencyMax = 24000.0
)
