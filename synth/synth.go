// Package synth renders audio from the domain types of the root package. A
// Mixer owns a fixed arena of voices and mixes them additively; a Renderer
// drives the Mixer on a monotonic sample clock and exposes the result as an
// io.Reader for pull-based playback backends; a Sequencer plays a Song.
//
// The render path has hard rules: it never blocks, never allocates and never
// returns errors. Anything that can go wrong while samples are being produced
// (clipping, underruns, anchors to dead voices) is counted in Stats and
// reported through a non-blocking alert channel instead.
package synth

import (
	"errors"
	"sync/atomic"
)

const (
	// MaxVoices is the maximum number of simultaneous voices a Mixer holds.
	MaxVoices = 32

	// smoothStartDuration is the unconditional fade-in applied to every
	// voice, long enough to kill the note-on click, short enough to be
	// inaudible as an attack.
	smoothStartDuration = 0.002

	// releaseDuration is the fade-out applied on note off to amplitudes
	// that do not decay on their own. A user amplitude still decaying keeps
	// its natural tail: the fade budget is only consumed while the
	// amplitude is not falling.
	releaseDuration = 0.05

	// renderChunkSize is the largest span Fill renders at once. Longer
	// buffers are rendered in renderChunkSize pieces so the scratch buffer
	// can be preallocated and the render path never allocates.
	renderChunkSize = 2048

	// audibilityThreshold is the amplitude below which a voice is considered
	// silent. A sustaining voice staying below it for audibilityGrace
	// seconds is retired so decayed notes do not occupy slots forever.
	audibilityThreshold = 1e-4
	audibilityGrace     = 0.1

	// eventBufferSize is the capacity of the mixer event channel. Events
	// beyond it are rejected, never blocked on.
	eventBufferSize = 1024
)

var (
	// ErrNoFreeVoice is returned by NoteOn when all MaxVoices slots hold
	// live voices. Voices are never stolen: a stolen voice could be the
	// anchor of another one.
	ErrNoFreeVoice = errors.New("all voices are in use")

	// ErrTooManyEvents is returned when the event channel is full, i.e. the
	// render side has not run for a long time.
	ErrTooManyEvents = errors.New("event buffer is full")

	// ErrStaleHandle is returned for handles whose voice has already been
	// retired and its slot reused.
	ErrStaleHandle = errors.New("voice handle is stale")
)

// Stats counts the runtime conditions of the render path. All counters are
// atomic; they only ever increase.
type Stats struct {
	// Underruns counts backend reads that took longer to fill than they
	// take to play.
	Underruns atomic.Uint64

	// Clips counts buffers whose mixed peak exceeded 1 before clamping.
	Clips atomic.Uint64

	// DanglingAnchors counts render-time evaluations of a derived voice
	// whose anchor was already retired.
	DanglingAnchors atomic.Uint64
}

// AlertKind tells what runtime condition an Alert reports.
type AlertKind int

const (
	AlertUnderrun AlertKind = iota
	AlertClip
	AlertDanglingAnchor
)

func (k AlertKind) String() string {
	switch k {
	case AlertUnderrun:
		return "underrun"
	case AlertClip:
		return "clip"
	case AlertDanglingAnchor:
		return "dangling anchor"
	}
	return "unknown"
}

// Alert is one runtime condition report, sent on the mixer's alert channel.
type Alert struct {
	Kind AlertKind
}

// trySend sends a value to a channel, returning false if the send would
// block. Used on the render path so a slow or absent consumer can never
// stall audio.
func trySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
		return true
	default:
		return false
	}
}
