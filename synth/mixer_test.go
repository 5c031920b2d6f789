package synth

import (
	"errors"
	"math"
	"testing"

	"github.com/puhdas/puhdas"
)

const testRate = 44100

func newTestMixer(t *testing.T) *Mixer {
	t.Helper()
	m, err := NewMixer(testRate)
	if err != nil {
		t.Fatalf("NewMixer failed: %v", err)
	}
	return m
}

func fill(m *Mixer, clock int64, n int) []float32 {
	buf := make([]float32, n)
	m.Fill(buf, clock)
	return buf
}

func TestMixerSmoothStart(t *testing.T) {
	m := newTestMixer(t)
	if _, err := m.NoteOn(Note{Frequency: constFreq(t, 440), Amplitude: constAmp(t, 1)}); err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	buf := fill(m, 0, 512)
	if buf[0] != 0 {
		t.Errorf("first sample = %v, want 0", buf[0])
	}
	ramp := int(math.Round(smoothStartDuration * testRate))
	for i := 0; i < ramp; i++ {
		bound := float32(float64(i)/float64(ramp)) + 1e-6
		if abs32(buf[i]) > bound {
			t.Fatalf("sample %d = %v exceeds the smooth-start bound %v", i, buf[i], bound)
		}
	}
	peak := float32(0)
	for _, v := range buf[ramp:] {
		peak = max32(peak, abs32(v))
	}
	if peak < 0.9 {
		t.Errorf("post-ramp peak = %v, want close to 1", peak)
	}
}

func TestMixerFillIsIdempotentOverSplits(t *testing.T) {
	const total = 4096
	render := func(chunk int) []float32 {
		m := newTestMixer(t)
		decay, err := puhdas.NewAmplitudeDecayExp(0.8, 0.2)
		if err != nil {
			t.Fatalf("NewAmplitudeDecayExp failed: %v", err)
		}
		partials := []Partial{{Ratio: 1, Weight: 2}, {Ratio: 2, Weight: 1}}
		if _, err := m.NoteOn(Note{Frequency: constFreq(t, 330), Amplitude: decay, Partials: partials}); err != nil {
			t.Fatalf("NoteOn failed: %v", err)
		}
		out := make([]float32, 0, total)
		for clock := int64(0); clock < total; clock += int64(chunk) {
			out = append(out, fill(m, clock, chunk)...)
		}
		return out
	}
	whole := render(total)
	for _, chunk := range []int{64, 128, 1000} {
		split := render(chunk)
		for i := range whole {
			if i >= len(split) {
				break
			}
			if whole[i] != split[i] {
				t.Fatalf("chunk %d: sample %d differs, %v != %v", chunk, i, split[i], whole[i])
			}
		}
	}
}

func TestMixerDerivedVoiceKeepsExactInterval(t *testing.T) {
	m := newTestMixer(t)
	glide, err := puhdas.NewFrequencyGlide(220, 440, 1)
	if err != nil {
		t.Fatalf("NewFrequencyGlide failed: %v", err)
	}
	anchor, err := m.NoteOn(Note{Frequency: glide, Amplitude: constAmp(t, 0.4)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	fifth, _ := puhdas.NewInterval(3, 2)
	derived, err := m.NoteOnDerived(anchor, fifth, constAmp(t, 0.4), nil)
	if err != nil {
		t.Fatalf("NoteOnDerived failed: %v", err)
	}
	fill(m, 0, 64) // activate both voices at clock 0
	anchorVoice := &m.slots[anchor.index].voice
	derivedVoice := &m.slots[derived.index].voice
	tests := []struct {
		at   float64
		want float64
	}{
		{0, 330},
		{0.5, 495}, // anchor mid-glide at 330, the derived voice at 3/2 of it
		{1, 660},
		{2, 660},
	}
	for _, test := range tests {
		got := m.fundamental(derivedVoice, test.at)
		if math.Abs(got-test.want) > 1e-9 {
			t.Errorf("derived fundamental at %v = %v, want %v", test.at, got, test.want)
		}
		ratio := got / m.fundamental(anchorVoice, test.at)
		if math.Abs(ratio-1.5) > 1e-12 {
			t.Errorf("interval at %v = %v, want exactly 1.5", test.at, ratio)
		}
	}
}

func TestMixerDerivedChainFollowsVibrato(t *testing.T) {
	m := newTestMixer(t)
	depth, _ := puhdas.NewInterval(81, 80)
	base, _ := puhdas.NewFrequencyConst(220)
	vibrato, err := puhdas.NewFrequencyVibrato(base, 6, depth)
	if err != nil {
		t.Fatalf("NewFrequencyVibrato failed: %v", err)
	}
	anchor, err := m.NoteOn(Note{Frequency: vibrato, Amplitude: constAmp(t, 0.3)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	fifth, _ := puhdas.NewInterval(3, 2)
	first, err := m.NoteOnDerived(anchor, fifth, constAmp(t, 0.3), nil)
	if err != nil {
		t.Fatalf("NoteOnDerived failed: %v", err)
	}
	// Chain one more: a fifth above the fifth.
	second, err := m.NoteOnDerived(first, fifth, constAmp(t, 0.3), nil)
	if err != nil {
		t.Fatalf("NoteOnDerived failed: %v", err)
	}
	fill(m, 0, 64)
	top := &m.slots[second.index].voice
	bottom := &m.slots[anchor.index].voice
	for at := 0.0; at < 0.5; at += 0.003 {
		ratio := m.fundamental(top, at) / m.fundamental(bottom, at)
		if math.Abs(ratio-2.25) > 1e-12 {
			t.Fatalf("chained interval at %v = %v, want exactly 2.25", at, ratio)
		}
	}
}

func TestMixerNoteOffReleasesAndRetires(t *testing.T) {
	m := newTestMixer(t)
	h, err := m.NoteOn(Note{Frequency: constFreq(t, 440), Amplitude: constAmp(t, 0.5)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	fill(m, 0, 1024)
	if err := m.NoteOff(h); err != nil {
		t.Fatalf("NoteOff failed: %v", err)
	}
	fill(m, 1024, 1024)
	if m.slots[h.index].voice.state != voiceReleasing {
		t.Fatalf("voice state = %v, want releasing", m.slots[h.index].voice.state)
	}
	// The fixed fade is over well within this much audio.
	releaseSamples := int(releaseDuration*testRate) + 1024
	buf := fill(m, 2048, releaseSamples)
	for i := releaseSamples - 256; i < releaseSamples; i++ {
		if buf[i] != 0 {
			t.Fatalf("sample %d = %v after the release ended, want 0", i, buf[i])
		}
	}
	if !m.Quiet() {
		t.Error("mixer not quiet after the only voice released")
	}
	if err := m.NoteOff(h); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("NoteOff on a retired voice = %v, want ErrStaleHandle", err)
	}
	if m.Alive(h) {
		t.Error("retired handle reported alive")
	}
}

func TestMixerVoiceExhaustion(t *testing.T) {
	m := newTestMixer(t)
	for i := 0; i < MaxVoices; i++ {
		if _, err := m.NoteOn(Note{Frequency: constFreq(t, 440), Amplitude: constAmp(t, 0.01)}); err != nil {
			t.Fatalf("NoteOn %d failed: %v", i, err)
		}
	}
	if _, err := m.NoteOn(Note{Frequency: constFreq(t, 440), Amplitude: constAmp(t, 0.01)}); !errors.Is(err, ErrNoFreeVoice) {
		t.Errorf("NoteOn on a full arena = %v, want ErrNoFreeVoice", err)
	}
}

func TestMixerSlotsAreReclaimed(t *testing.T) {
	m := newTestMixer(t)
	h, err := m.NoteOn(Note{Frequency: constFreq(t, 440), Amplitude: constAmp(t, 0.5)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	fill(m, 0, 64)
	m.NoteOff(h)
	fill(m, 64, int(releaseDuration*testRate)+1024)
	for i := 0; i < MaxVoices; i++ {
		if _, err := m.NoteOn(Note{Frequency: constFreq(t, 440), Amplitude: constAmp(t, 0.01)}); err != nil {
			t.Fatalf("NoteOn %d after reclaim failed: %v", i, err)
		}
	}
}

func TestMixerClipsAreClampedAndCounted(t *testing.T) {
	m := newTestMixer(t)
	anchor, err := m.NoteOn(Note{Frequency: constFreq(t, 220), Amplitude: constAmp(t, 1)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	if _, err := m.NoteOnDerived(anchor, puhdas.Octave, constAmp(t, 1), nil); err != nil {
		t.Fatalf("NoteOnDerived failed: %v", err)
	}
	buf := fill(m, 0, 8192)
	if got := m.Stats().Clips.Load(); got == 0 {
		t.Error("two full-scale voices an octave apart did not count a clip")
	}
	for i, v := range buf {
		if v > 1 || v < -1 {
			t.Fatalf("sample %d = %v escaped the clamp", i, v)
		}
	}
	select {
	case alert := <-m.Alerts():
		if alert.Kind != AlertClip {
			t.Errorf("alert kind = %v, want clip", alert.Kind)
		}
	default:
		t.Error("no alert for clipping")
	}
}

func TestMixerDanglingAnchor(t *testing.T) {
	m := newTestMixer(t)
	anchor, err := m.NoteOn(Note{Frequency: constFreq(t, 220), Amplitude: constAmp(t, 0.4)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	fifth, _ := puhdas.NewInterval(3, 2)
	derived, err := m.NoteOnDerived(anchor, fifth, constAmp(t, 0.4), nil)
	if err != nil {
		t.Fatalf("NoteOnDerived failed: %v", err)
	}
	fill(m, 0, 64)
	m.NoteOff(anchor)
	clock := int64(64)
	for m.Alive(anchor) {
		fill(m, clock, 1024)
		clock += 1024
	}
	// The derived voice lost its anchor: the event is counted and the voice
	// keeps sounding at its last pitch instead of glitching.
	fill(m, clock, 1024)
	if got := m.Stats().DanglingAnchors.Load(); got == 0 {
		t.Error("dangling anchor was not counted")
	}
	if !m.Alive(derived) {
		t.Fatal("derived voice died with its anchor")
	}
	v := &m.slots[derived.index].voice
	if v.anchor != -1 {
		t.Error("derived voice still points at the dead anchor")
	}
	if got := m.fundamental(v, 1); math.Abs(got-330) > 1e-9 {
		t.Errorf("frozen pitch = %v, want 330", got)
	}
	// Starting a new derived voice from the stale handle must fail outright.
	if _, err := m.NoteOnDerived(anchor, fifth, constAmp(t, 0.4), nil); !errors.Is(err, puhdas.ErrDanglingAnchor) {
		t.Errorf("NoteOnDerived on a stale anchor = %v, want ErrDanglingAnchor", err)
	}
}

func TestMixerUpdateSwapsFunctions(t *testing.T) {
	m := newTestMixer(t)
	h, err := m.NoteOn(Note{Frequency: constFreq(t, 220), Amplitude: constAmp(t, 0.5)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	fill(m, 0, 64)
	if err := m.Update(h, constFreq(t, 440), nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	fill(m, 64, 64)
	v := &m.slots[h.index].voice
	if got := m.fundamental(v, 0.1); got != 440 {
		t.Errorf("fundamental after update = %v, want 440", got)
	}
	if got := v.amplitude.AmplitudeAt(0.1); got != 0.5 {
		t.Errorf("amplitude after nil update = %v, want the old 0.5", got)
	}
}

func TestMixerControlBeforeFirstFill(t *testing.T) {
	// Events issued before any rendering must all take effect on the first
	// buffer, in order.
	m := newTestMixer(t)
	h, err := m.NoteOn(Note{Frequency: constFreq(t, 440), Amplitude: constAmp(t, 0.5)})
	if err != nil {
		t.Fatalf("NoteOn failed: %v", err)
	}
	if err := m.NoteOff(h); err != nil {
		t.Fatalf("NoteOff failed: %v", err)
	}
	buf := fill(m, 0, int(releaseDuration*testRate)+256)
	for i := len(buf) - 64; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Fatalf("sample %d = %v, want silence after an immediate release", i, buf[i])
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
