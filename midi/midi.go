// Package midi turns MIDI note input into mixer voices. Keys are bent onto
// the harmonic grid: each key's pitch is the root frequency transposed by the
// just-intonation interval for its distance from the root key, not by equal
// temperament.
package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/puhdas/puhdas"
	"github.com/puhdas/puhdas/synth"
)

// Context is an open RTMIDI driver with at most one listening input device.
type Context struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()

	mixer      *synth.Mixer
	instrument puhdas.Instrument
	partials   []synth.Partial
	root       float64
	rootKey    uint8

	mu       sync.Mutex
	handles  [128]synth.Handle
	sounding [128]bool
}

// NewContext opens the RTMIDI driver.
func NewContext() (*Context, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("cannot open MIDI driver: %w", err)
	}
	return &Context{driver: driver}, nil
}

// InputDevices lists the names of the available MIDI input devices.
func (c *Context) InputDevices() ([]string, error) {
	ins, err := c.driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// Open starts listening to the first input device whose name has the given
// prefix (an empty prefix takes the first device) and plays its notes on the
// mixer with the given instrument. The root frequency is assigned to the
// root key; every other key sounds at the root transposed by its just
// interval.
func (c *Context) Open(namePrefix string, mixer *synth.Mixer, instrument puhdas.Instrument, root float64, rootKey uint8) error {
	if c.in != nil {
		return errors.New("a MIDI input is already open")
	}
	if err := instrument.Validate(); err != nil {
		return fmt.Errorf("invalid instrument: %w", err)
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	var in drivers.In
	for _, candidate := range ins {
		if namePrefix == "" || strings.HasPrefix(candidate.String(), namePrefix) {
			in = candidate
			break
		}
	}
	if in == nil {
		return fmt.Errorf("no MIDI input matching %q", namePrefix)
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	c.mixer = mixer
	c.instrument = instrument.Copy()
	c.partials = synth.PartialsForInstrument(&instrument)
	c.root = root
	c.rootKey = rootKey
	stop, err := midi.ListenTo(in, c.handleMessage)
	if err != nil {
		in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.in = in
	c.stop = stop
	return nil
}

// Close stops listening and closes the driver.
func (c *Context) Close() {
	if c.stop != nil {
		c.stop()
	}
	if c.in != nil && c.in.IsOpen() {
		c.in.Close()
	}
	c.driver.Close()
}

func (c *Context) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			c.noteOff(key)
			return
		}
		c.noteOn(key, velocity)
	case msg.GetNoteOff(&channel, &key, &velocity):
		c.noteOff(key)
	}
}

// KeyFrequency returns the frequency a MIDI key sounds at: the root frequency
// transposed by the just-intonation interval between the key and the root
// key.
func KeyFrequency(root float64, rootKey, key uint8) (float64, error) {
	interval, err := puhdas.JustInterval(int(key) - int(rootKey))
	if err != nil {
		return 0, err
	}
	return interval.Apply(root)
}

func (c *Context) noteOn(key, velocity uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sounding[key] {
		return
	}
	frequency, err := KeyFrequency(c.root, c.rootKey, key)
	if err != nil {
		// The key falls outside the hearing range; nothing to play.
		return
	}
	freqFn, err := c.instrument.FrequencyProfile(frequency)
	if err != nil {
		return
	}
	ampFn, err := c.instrument.AmplitudeProfile(float64(velocity) / 127)
	if err != nil {
		return
	}
	handle, err := c.mixer.NoteOn(synth.Note{Frequency: freqFn, Amplitude: ampFn, Partials: c.partials})
	if err != nil {
		return
	}
	c.handles[key] = handle
	c.sounding[key] = true
}

func (c *Context) noteOff(key uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sounding[key] {
		return
	}
	c.mixer.NoteOff(c.handles[key])
	c.sounding[key] = false
}
