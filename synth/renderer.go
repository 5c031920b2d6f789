package synth

import (
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Renderer owns the monotonic sample clock of a Mixer. Every Fill advances
// the clock by exactly the buffer length, so rendering a time range in one
// call or split over many calls produces the same samples.
type Renderer struct {
	mixer *Mixer
	clock int64
}

// NewRenderer wraps a mixer with a sample clock starting at zero.
func NewRenderer(mixer *Mixer) *Renderer {
	return &Renderer{mixer: mixer}
}

// Mixer returns the mixer this renderer drives.
func (r *Renderer) Mixer() *Mixer { return r.mixer }

// Clock returns the sample clock: the number of samples rendered so far.
func (r *Renderer) Clock() int64 { return r.clock }

// Time returns the clock in seconds.
func (r *Renderer) Time() float64 {
	return float64(r.clock) / float64(r.mixer.sampleRate)
}

// Fill renders len(buf) samples and advances the clock past them.
func (r *Renderer) Fill(buf []float32) {
	r.mixer.Fill(buf, r.clock)
	r.clock += int64(len(buf))
}

// Reader returns an endless stream of the renderer's output as little-endian
// float32 bytes, the format pull-based playback backends read on their own
// cadence. If producing a read's worth of samples takes longer than those
// samples take to play, the read is counted as an underrun; the stream keeps
// going either way.
func (r *Renderer) Reader() io.Reader {
	return &renderReader{renderer: r}
}

type renderReader struct {
	renderer *Renderer
	scratch  []float32
}

func (rd *renderReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}
	if len(rd.scratch) < n {
		rd.scratch = make([]float32, n)
	}
	buf := rd.scratch[:n]
	m := rd.renderer.mixer
	start := time.Now()
	rd.renderer.Fill(buf)
	budget := time.Duration(float64(n) * m.sampleTime * float64(time.Second))
	if time.Since(start) > budget {
		m.stats.Underruns.Add(1)
		trySend(m.alerts, Alert{Kind: AlertUnderrun})
	}
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}
