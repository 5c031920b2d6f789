package synth

import (
	"github.com/puhdas/puhdas"
)

// voiceState is the lifecycle of a voice. Transitions only move forward:
// starting, sustaining, releasing, finished.
type voiceState int32

const (
	voiceStarting voiceState = iota
	voiceSustaining
	voiceReleasing
	voiceFinished
)

// voice is the render-side state of one sounding note. It is owned by the
// render goroutine from activation to retirement; the event side only
// prepares it while the slot is still pending.
type voice struct {
	frequency puhdas.FrequencyFunction // nil for anchored voices
	amplitude puhdas.AmplitudeFunction
	osc       oscillator

	start int64 // sample clock of the first sample
	state voiceState

	releaseAt   float64 // elapsed seconds when the release began
	releaseGain float64 // running amplitude cap while releasing
	releaseStep float64 // fade budget burned per sample while not decaying
	quiet       int     // consecutive samples below the audibility threshold

	// Anchoring. An anchored voice has no frequency function of its own: its
	// fundamental is the anchor's instantaneous fundamental times ratio,
	// evaluated on the anchor's own time base.
	anchor           int32 // slot index of the anchor, -1 for none
	anchorGeneration uint32
	ratio            float64
	anchorOffset     float64 // anchor elapsed = own elapsed + anchorOffset

	// lastFrequency freezes the pitch if the anchor is retired mid-note, so
	// a dangling anchor degrades to a steady tone instead of a glitch.
	lastFrequency float64
}

// release starts the fade-out. Calling it again, or on a finished voice, does
// nothing: the lifecycle never moves backwards.
func (v *voice) release(elapsed float64) {
	if v.state != voiceStarting && v.state != voiceSustaining {
		return
	}
	v.state = voiceReleasing
	v.releaseAt = elapsed
	v.releaseGain = -1 // no cap until the first releasing sample
}

// gain returns the voice's amplitude at the given elapsed time and advances
// the lifecycle. The smooth-start ramp is applied unconditionally. While
// releasing, the amplitude follows the user function for as long as it keeps
// decaying on its own and burns through a fixed fade budget whenever it does
// not: a long natural tail survives the note-off, a sustained level dies
// within the fixed fade, and the result never increases again.
func (v *voice) gain(elapsed float64, sampleRate int) float64 {
	a := v.amplitude.AmplitudeAt(elapsed)
	if elapsed < smoothStartDuration {
		a *= elapsed / smoothStartDuration
	} else if v.state == voiceStarting {
		v.state = voiceSustaining
	}
	switch v.state {
	case voiceReleasing:
		if v.releaseGain < 0 {
			// First releasing sample; the fade budget starts at the
			// current level.
			v.releaseGain = a
			v.releaseStep = a / (releaseDuration * float64(sampleRate))
		} else if a < v.releaseGain {
			v.releaseGain = a
		} else {
			v.releaseGain -= v.releaseStep
		}
		a = v.releaseGain
		if a < audibilityThreshold {
			v.state = voiceFinished
			return 0
		}
	case voiceSustaining:
		if a < audibilityThreshold {
			v.quiet++
			if float64(v.quiet) > audibilityGrace*float64(sampleRate) {
				v.state = voiceFinished
				return 0
			}
		} else {
			v.quiet = 0
		}
	case voiceFinished:
		return 0
	}
	return a
}
