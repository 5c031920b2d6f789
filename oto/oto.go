// Package oto is the playback backend: it feeds rendered audio to the system
// audio device through ebitengine/oto. The backend pulls: it reads
// little-endian float32 bytes from an io.Reader on its own cadence, so both a
// live synth.Renderer stream and a pre-rendered buffer plug in the same way.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Context is an initialized audio device.
type Context struct {
	context    *oto.Context
	sampleRate int
}

// NewContext opens the audio device for mono float32 output at the given
// sample rate. Only one context can exist per process; it cannot be closed,
// per the underlying library.
func NewContext(sampleRate int) (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{context: context, sampleRate: sampleRate}, nil
}

// SampleRate returns the device sample rate in Hz.
func (c *Context) SampleRate() int { return c.sampleRate }

// Play starts pulling audio from r and playing it. It returns immediately;
// use Player.Wait to block until a finite stream has played out.
func (c *Context) Play(r io.Reader) *Player {
	player := c.context.NewPlayer(r)
	player.Play()
	return &Player{player: player}
}

// Player is one playing stream.
type Player struct {
	player *oto.Player
}

// Wait blocks until the player has consumed its whole stream and played it
// out. It never returns for an endless stream.
func (p *Player) Wait() {
	for p.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
}

// Close stops playback and releases the player.
func (p *Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
