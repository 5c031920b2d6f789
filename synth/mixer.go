package synth

import (
	"fmt"
	"sync/atomic"

	"github.com/puhdas/puhdas"
	"github.com/viterin/vek/vek32"
)

// Slot states. The event side moves slots from slotEmpty or slotFinished to
// slotPending with a CAS; the render side moves them from slotPending to
// slotActive when it processes the activation event and to slotFinished when
// the voice ends. No other transitions exist.
const (
	slotEmpty int32 = iota
	slotPending
	slotActive
	slotFinished
)

type slot struct {
	state      atomic.Int32
	generation atomic.Uint32
	voice      voice
}

// Handle identifies a live voice. Handles are generation-counted: once the
// voice ends and its slot is reused, old handles are detected as stale
// instead of silently controlling the wrong voice. The zero Handle is never
// valid.
type Handle struct {
	index      int32
	generation uint32
}

type eventKind int

const (
	eventNoteOn eventKind = iota
	eventNoteOff
	eventUpdate
)

type event struct {
	kind       eventKind
	index      int32
	generation uint32
	frequency  puhdas.FrequencyFunction // eventUpdate, nil keeps current
	amplitude  puhdas.AmplitudeFunction // eventUpdate, nil keeps current
}

// Note is everything needed to start a voice.
type Note struct {
	Frequency puhdas.FrequencyFunction
	Amplitude puhdas.AmplitudeFunction

	// Partials of the voice; nil means a single pure sine at the
	// fundamental.
	Partials []Partial
}

// Mixer owns a fixed arena of MaxVoices voices and mixes them additively into
// buffers. Control operations (NoteOn, NoteOff, Update) may be called from
// any goroutine: they stage their work and hand it to the render side through
// a buffered channel, which Fill drains at its start. Fill itself must only
// be called from one goroutine at a time and never blocks on the control
// side.
type Mixer struct {
	sampleRate int
	sampleTime float64
	slots      [MaxVoices]slot
	events     chan event
	scratch    []float32
	stats      Stats
	alerts     chan Alert
}

// NewMixer creates a mixer rendering at the given sample rate.
func NewMixer(sampleRate int) (*Mixer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	return &Mixer{
		sampleRate: sampleRate,
		sampleTime: 1 / float64(sampleRate),
		events:     make(chan event, eventBufferSize),
		scratch:    make([]float32, renderChunkSize),
		alerts:     make(chan Alert, eventBufferSize),
	}, nil
}

// SampleRate returns the render sample rate in Hz.
func (m *Mixer) SampleRate() int { return m.sampleRate }

// Stats returns the runtime condition counters of this mixer.
func (m *Mixer) Stats() *Stats { return &m.stats }

// Alerts returns the channel on which runtime conditions are reported. The
// channel is never closed; reading it is optional and a full channel drops
// alerts rather than stalling the render path.
func (m *Mixer) Alerts() <-chan Alert { return m.alerts }

// NoteOn starts a new voice and returns its handle. It fails with
// ErrNoFreeVoice when the arena is full; voices are never stolen.
func (m *Mixer) NoteOn(note Note) (Handle, error) {
	if note.Frequency == nil {
		return Handle{}, puhdas.ErrInvalidFrequency
	}
	return m.noteOn(note.Frequency, note.Amplitude, note.Partials, -1, 0, 0)
}

// NoteOnDerived starts a voice whose pitch is not a function of its own but
// the anchor voice's instantaneous fundamental transposed by interval. The
// two voices keep the exact interval between them no matter how the anchor's
// pitch moves. Fails with ErrDanglingAnchor if the anchor is no longer live.
func (m *Mixer) NoteOnDerived(anchor Handle, interval puhdas.Interval, amplitude puhdas.AmplitudeFunction, partials []Partial) (Handle, error) {
	if interval.Numerator() == 0 || interval.Denominator() == 0 {
		return Handle{}, puhdas.ErrInvalidInterval
	}
	if !m.alive(anchor) {
		return Handle{}, puhdas.ErrDanglingAnchor
	}
	return m.noteOn(nil, amplitude, partials, anchor.index, anchor.generation, interval.Ratio())
}

func (m *Mixer) noteOn(frequency puhdas.FrequencyFunction, amplitude puhdas.AmplitudeFunction, partials []Partial, anchor int32, anchorGen uint32, ratio float64) (Handle, error) {
	if amplitude == nil {
		return Handle{}, puhdas.ErrInvalidAmplitude
	}
	index := int32(-1)
	for i := range m.slots {
		s := &m.slots[i]
		if s.state.CompareAndSwap(slotEmpty, slotPending) || s.state.CompareAndSwap(slotFinished, slotPending) {
			index = int32(i)
			break
		}
	}
	if index < 0 {
		return Handle{}, ErrNoFreeVoice
	}
	s := &m.slots[index]
	generation := s.generation.Add(1)
	s.voice = voice{
		frequency:        frequency,
		amplitude:        amplitude,
		osc:              newOscillator(partials),
		anchor:           anchor,
		anchorGeneration: anchorGen,
		ratio:            ratio,
	}
	if !trySend(m.events, event{kind: eventNoteOn, index: index, generation: generation}) {
		s.state.Store(slotEmpty)
		return Handle{}, ErrTooManyEvents
	}
	return Handle{index: index, generation: generation}, nil
}

// NoteOff releases the voice: it fades out over a short fixed time and is
// then retired. Releasing an already released or retired voice does nothing.
func (m *Mixer) NoteOff(h Handle) error {
	if !m.alive(h) {
		return ErrStaleHandle
	}
	if !trySend(m.events, event{kind: eventNoteOff, index: h.index, generation: h.generation}) {
		return ErrTooManyEvents
	}
	return nil
}

// Update replaces the frequency and/or amplitude function of a live voice.
// A nil function keeps the current one. The voice's time base does not
// change: the new functions are evaluated at the time elapsed since the
// original note on. Anchored voices cannot take a frequency function.
func (m *Mixer) Update(h Handle, frequency puhdas.FrequencyFunction, amplitude puhdas.AmplitudeFunction) error {
	if !m.alive(h) {
		return ErrStaleHandle
	}
	if !trySend(m.events, event{kind: eventUpdate, index: h.index, generation: h.generation, frequency: frequency, amplitude: amplitude}) {
		return ErrTooManyEvents
	}
	return nil
}

// Alive reports whether the handle still refers to a live voice.
func (m *Mixer) Alive(h Handle) bool { return m.alive(h) }

// Quiet reports whether the mixer has no live voices and no pending events,
// i.e. further fills produce silence until the next NoteOn.
func (m *Mixer) Quiet() bool {
	if len(m.events) > 0 {
		return false
	}
	for i := range m.slots {
		state := m.slots[i].state.Load()
		if state == slotPending || state == slotActive {
			return false
		}
	}
	return true
}

func (m *Mixer) alive(h Handle) bool {
	if h.index < 0 || h.index >= MaxVoices || h.generation == 0 {
		return false
	}
	s := &m.slots[h.index]
	if s.generation.Load() != h.generation {
		return false
	}
	state := s.state.Load()
	return state == slotPending || state == slotActive
}

// Fill mixes all voices into buf, with the first sample of buf at the given
// sample clock. Pending control events are applied first, all taking effect
// at the clock of the buffer's first sample. Rendering the same clock range
// in one Fill or in several produces identical samples, as long as the
// control events are the same. Buffers longer than renderChunkSize are
// rendered in pieces against the preallocated scratch buffer.
func (m *Mixer) Fill(buf []float32, clock int64) {
drain:
	for {
		select {
		case e := <-m.events:
			m.apply(e, clock)
		default:
			break drain
		}
	}
	for len(buf) > 0 {
		span := len(buf)
		if span > renderChunkSize {
			span = renderChunkSize
		}
		m.fillSpan(buf[:span], clock)
		buf = buf[span:]
		clock += int64(span)
	}
}

func (m *Mixer) fillSpan(buf []float32, clock int64) {
	scratch := m.scratch[:len(buf)]
	vek32.Zeros_Into(buf, len(buf))
	for i := range m.slots {
		s := &m.slots[i]
		if s.state.Load() != slotActive {
			continue
		}
		m.renderVoice(&s.voice, scratch, clock)
		vek32.Add_Inplace(buf, scratch)
		if s.voice.state == voiceFinished {
			s.voice = voice{}
			s.state.Store(slotFinished)
		}
	}
	if peak := vek32.Max(buf); peak > 1 || vek32.Min(buf) < -1 {
		m.stats.Clips.Add(1)
		trySend(m.alerts, Alert{Kind: AlertClip})
		vek32.MinimumNumber_Inplace(buf, 1)
		vek32.MaximumNumber_Inplace(buf, -1)
	}
}

func (m *Mixer) apply(e event, clock int64) {
	s := &m.slots[e.index]
	if s.generation.Load() != e.generation {
		return
	}
	switch e.kind {
	case eventNoteOn:
		if s.state.Load() != slotPending {
			return
		}
		v := &s.voice
		v.start = clock
		if v.anchor >= 0 {
			a := &m.slots[v.anchor]
			if a.generation.Load() != v.anchorGeneration || a.state.Load() != slotActive {
				// The anchor died between NoteOnDerived and activation;
				// there is no pitch to derive, so the voice never starts.
				m.stats.DanglingAnchors.Add(1)
				trySend(m.alerts, Alert{Kind: AlertDanglingAnchor})
				s.voice = voice{}
				s.state.Store(slotFinished)
				return
			}
			v.anchorOffset = float64(clock-a.voice.start) * m.sampleTime
		}
		s.state.Store(slotActive)
	case eventNoteOff:
		if s.state.Load() != slotActive {
			return
		}
		elapsed := float64(clock-s.voice.start) * m.sampleTime
		s.voice.release(elapsed)
	case eventUpdate:
		if s.state.Load() != slotActive {
			return
		}
		if e.frequency != nil && s.voice.anchor < 0 {
			s.voice.frequency = e.frequency
		}
		if e.amplitude != nil {
			s.voice.amplitude = e.amplitude
		}
	}
}

// fundamental resolves the instantaneous fundamental frequency of a voice at
// its own elapsed time, following anchor chains. A chain always points at
// voices started earlier, so it cannot cycle.
func (m *Mixer) fundamental(v *voice, elapsed float64) float64 {
	if v.anchor < 0 {
		return v.frequency.FrequencyAt(elapsed)
	}
	a := &m.slots[v.anchor]
	if a.generation.Load() != v.anchorGeneration || a.state.Load() != slotActive {
		m.stats.DanglingAnchors.Add(1)
		trySend(m.alerts, Alert{Kind: AlertDanglingAnchor})
		v.anchor = -1
		frozen, err := puhdas.NewFrequencyConst(v.lastFrequency)
		if err != nil {
			v.state = voiceFinished
			return 0
		}
		v.frequency = frozen
		return v.lastFrequency
	}
	return m.fundamental(&a.voice, elapsed+v.anchorOffset) * v.ratio
}

func (m *Mixer) renderVoice(v *voice, dst []float32, clock int64) {
	for i := range dst {
		if v.state == voiceFinished {
			for ; i < len(dst); i++ {
				dst[i] = 0
			}
			return
		}
		elapsed := float64(clock+int64(i)-v.start) * m.sampleTime
		f := m.fundamental(v, elapsed)
		v.lastFrequency = f
		a := v.gain(elapsed, m.sampleRate)
		dst[i] = float32(a * v.osc.sample(f, elapsed, m.sampleTime))
	}
}
