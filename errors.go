package puhdas

import "errors"

// Construction-time errors. They are returned synchronously by constructors
// and reject the operation; nothing is silently coerced. The render path
// itself never returns errors: runtime conditions (underruns, clipping,
// dangling anchors) are counted in synth.Stats instead.
var (
	// ErrInvalidInterval is returned when an interval has a zero numerator or
	// denominator.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrFrequencyTooLow is returned when a frequency falls below
	// ToneFrequencyMin.
	ErrFrequencyTooLow = errors.New("frequency is below the hearing range")

	// ErrFrequencyTooHigh is returned when a frequency exceeds
	// ToneFrequencyMax.
	ErrFrequencyTooHigh = errors.New("frequency exceeds the hearing range")

	// ErrInvalidFrequency is returned for zero, negative or non-finite
	// frequencies.
	ErrInvalidFrequency = errors.New("frequency must be positive and finite")

	// ErrInvalidAmplitude is returned for negative or non-finite amplitudes.
	ErrInvalidAmplitude = errors.New("amplitude must be non-negative and finite")

	// ErrInvalidRate is returned for non-positive modulation rates.
	ErrInvalidRate = errors.New("rate must be positive")

	// ErrInvalidDuration is returned for non-positive durations.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrInvalidHalfLife is returned for non-positive decay half-lives.
	ErrInvalidHalfLife = errors.New("half-life must be positive")

	// ErrInvalidTempo is returned for non-positive tempos.
	ErrInvalidTempo = errors.New("tempo must be positive")

	// ErrOverflow is returned when an exact interval calculation would
	// overflow the rational representation.
	ErrOverflow = errors.New("interval arithmetic overflow")

	// ErrDanglingAnchor is returned when a derived frequency function
	// references a voice that no longer exists.
	ErrDanglingAnchor = errors.New("anchor voice no longer exists")
)
