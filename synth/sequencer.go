package synth

import (
	"fmt"
	"math"

	"github.com/puhdas/puhdas"
)

type seqPhase int

const (
	seqStart seqPhase = iota // next boundary starts the current step's note
	seqHold                  // note is sounding; next boundary releases it
	seqTail                  // note released; next boundary moves to the next step
	seqDone                  // all steps played, only release tails remain
)

// Sequencer plays a Song through a Renderer: it walks the song's interval
// chain on the sample clock, starting and releasing voices at exact sample
// positions between render spans. Chord intervals are started as voices
// anchored to the step's own voice, so a chord stays exactly in tune even
// when the instrument has vibrato.
type Sequencer struct {
	renderer    *Renderer
	song        puhdas.Song
	frequencies []float64
	partials    []Partial

	samplesPerBeat int
	step           int
	phase          seqPhase
	remaining      int // samples until the next boundary
	stepSamples    int
	holdSamples    int
	handle         Handle
	chord          []Handle
}

// NewSequencer validates the song and prepares it for playing through the
// renderer.
func NewSequencer(renderer *Renderer, song *puhdas.Song) (*Sequencer, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("invalid song: %w", err)
	}
	frequencies, err := song.Frequencies()
	if err != nil {
		return nil, err
	}
	tempo, err := puhdas.NewTempo(song.BPM)
	if err != nil {
		return nil, err
	}
	return &Sequencer{
		renderer:       renderer,
		song:           song.Copy(),
		frequencies:    frequencies,
		partials:       PartialsForInstrument(&song.Instrument),
		samplesPerBeat: tempo.SamplesPerBeat(renderer.mixer.sampleRate),
	}, nil
}

// Render fills buf with the next samples of the song. It returns true once
// every step has been played and all voices have died out; the buffer is
// still filled completely (with silence at the end), so the caller can keep
// a fixed chunk size.
func (s *Sequencer) Render(buf []float32) (bool, error) {
	filled := 0
	for filled < len(buf) {
		if s.phase != seqDone && s.remaining == 0 {
			if err := s.advance(); err != nil {
				return false, err
			}
			continue
		}
		span := len(buf) - filled
		if s.phase != seqDone && s.remaining < span {
			span = s.remaining
		}
		s.renderer.Fill(buf[filled : filled+span])
		filled += span
		if s.phase != seqDone {
			s.remaining -= span
		}
	}
	return s.phase == seqDone && s.renderer.mixer.Quiet(), nil
}

func (s *Sequencer) advance() error {
	switch s.phase {
	case seqStart:
		if s.step >= len(s.song.Steps) {
			s.phase = seqDone
			return nil
		}
		step := s.song.Steps[s.step]
		s.stepSamples = int(math.Round(step.Beats * float64(s.samplesPerBeat)))
		hold := step.Hold
		if hold == 0 {
			hold = 1
		}
		s.holdSamples = int(math.Round(float64(s.stepSamples) * hold))
		if !step.Rest {
			if err := s.noteOn(step); err != nil {
				return err
			}
		}
		s.remaining = s.holdSamples
		s.phase = seqHold
	case seqHold:
		s.noteOff()
		s.remaining = s.stepSamples - s.holdSamples
		s.phase = seqTail
	case seqTail:
		s.step++
		s.phase = seqStart
	}
	return nil
}

func (s *Sequencer) noteOn(step puhdas.Step) error {
	volume := step.Volume
	if volume == 0 {
		volume = 1
	}
	// Chord notes share the step's volume budget so a chord does not clip
	// where a single note would not.
	share := volume / float64(len(step.Chord)+1)
	frequency, err := s.song.Instrument.FrequencyProfile(s.frequencies[s.step])
	if err != nil {
		return err
	}
	amplitude, err := s.song.Instrument.AmplitudeProfile(share)
	if err != nil {
		return err
	}
	mixer := s.renderer.mixer
	s.handle, err = mixer.NoteOn(Note{Frequency: frequency, Amplitude: amplitude, Partials: s.partials})
	if err != nil {
		return fmt.Errorf("step %d: %w", s.step, err)
	}
	s.chord = s.chord[:0]
	for _, interval := range step.Chord {
		h, err := mixer.NoteOnDerived(s.handle, interval, amplitude, s.partials)
		if err != nil {
			return fmt.Errorf("step %d chord: %w", s.step, err)
		}
		s.chord = append(s.chord, h)
	}
	return nil
}

func (s *Sequencer) noteOff() {
	mixer := s.renderer.mixer
	// The step voice may have decayed away and gone stale on its own; the
	// chord releases still go out regardless.
	mixer.NoteOff(s.handle)
	for _, h := range s.chord {
		mixer.NoteOff(h)
	}
	s.chord = s.chord[:0]
}

// RenderSong renders a whole song offline into an audio buffer at the given
// sample rate, including the release tail after the last step.
func RenderSong(song *puhdas.Song, sampleRate int) (puhdas.AudioBuffer, error) {
	mixer, err := NewMixer(sampleRate)
	if err != nil {
		return nil, err
	}
	renderer := NewRenderer(mixer)
	seq, err := NewSequencer(renderer, song)
	if err != nil {
		return nil, err
	}
	tempo, _ := puhdas.NewTempo(song.BPM)
	estimate := int(song.TotalBeats()*float64(tempo.SamplesPerBeat(sampleRate))) + sampleRate
	buffer := make(puhdas.AudioBuffer, 0, estimate)
	// Tails longer than this are cut; a voice that never dies out would
	// otherwise render forever.
	limit := int64(estimate) + 30*int64(sampleRate)
	chunk := make([]float32, 1024)
	for {
		done, err := seq.Render(chunk)
		if err != nil {
			return nil, err
		}
		buffer = append(buffer, chunk...)
		if done || renderer.Clock() > limit {
			return buffer, nil
		}
	}
}
