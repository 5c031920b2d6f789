package puhdas_test

import (
	"errors"
	"math"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/puhdas/puhdas"
)

const errorThreshold = 1e-12

func TestNewIntervalReduces(t *testing.T) {
	tests := []struct {
		n, d  uint32
		wantN uint32
		wantD uint32
	}{
		{1, 1, 1, 1},
		{2, 4, 1, 2},
		{6, 4, 3, 2},
		{440, 220, 2, 1},
		{45, 32, 45, 32},
	}
	for _, test := range tests {
		interval, err := puhdas.NewInterval(test.n, test.d)
		if err != nil {
			t.Fatalf("NewInterval(%d, %d) failed: %v", test.n, test.d, err)
		}
		if interval.Numerator() != test.wantN || interval.Denominator() != test.wantD {
			t.Errorf("NewInterval(%d, %d) = %v, want %d/%d", test.n, test.d, interval, test.wantN, test.wantD)
		}
	}
}

func TestNewIntervalRejectsZero(t *testing.T) {
	for _, pair := range [][2]uint32{{0, 1}, {1, 0}, {0, 0}} {
		if _, err := puhdas.NewInterval(pair[0], pair[1]); !errors.Is(err, puhdas.ErrInvalidInterval) {
			t.Errorf("NewInterval(%d, %d) error = %v, want ErrInvalidInterval", pair[0], pair[1], err)
		}
	}
}

func TestIntervalComposition(t *testing.T) {
	fifth, _ := puhdas.NewInterval(3, 2)
	fourth, _ := puhdas.NewInterval(4, 3)
	octave, err := fifth.Mul(fourth)
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}
	if octave != puhdas.Octave {
		t.Errorf("fifth * fourth = %v, want 2/1", octave)
	}
	back, err := octave.Div(fourth)
	if err != nil {
		t.Fatalf("Div failed: %v", err)
	}
	if back != fifth {
		t.Errorf("octave / fourth = %v, want 3/2", back)
	}
	unison, err := fifth.Mul(fifth.Invert())
	if err != nil {
		t.Fatalf("Mul with inversion failed: %v", err)
	}
	if unison != puhdas.Unison {
		t.Errorf("fifth * inverted fifth = %v, want 1/1", unison)
	}
}

func TestIntervalCompositionStaysExact(t *testing.T) {
	// A comma-sized drift would show up here if composition went through
	// floats: 12 fifths down 7 octaves is the Pythagorean comma, not unison.
	acc := puhdas.Unison
	fifth, _ := puhdas.NewInterval(3, 2)
	var err error
	for i := 0; i < 12; i++ {
		if acc, err = acc.Mul(fifth); err != nil {
			t.Fatalf("Mul failed at step %d: %v", i, err)
		}
	}
	for i := 0; i < 7; i++ {
		if acc, err = acc.Div(puhdas.Octave); err != nil {
			t.Fatalf("Div failed at step %d: %v", i, err)
		}
	}
	if acc.Numerator() != 531441 || acc.Denominator() != 524288 {
		t.Errorf("twelve fifths less seven octaves = %v, want 531441/524288", acc)
	}
}

func TestIntervalOverflow(t *testing.T) {
	huge, _ := puhdas.NewInterval(math.MaxUint32, 1)
	if _, err := huge.Mul(huge); !errors.Is(err, puhdas.ErrOverflow) {
		t.Errorf("Mul overflow error = %v, want ErrOverflow", err)
	}
}

func TestIntervalApply(t *testing.T) {
	fifth, _ := puhdas.NewInterval(3, 2)
	got, err := fifth.Apply(220)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if math.Abs(got-330) > errorThreshold {
		t.Errorf("3/2 applied to 220 Hz = %v, want 330", got)
	}
	down, err := fifth.ApplyInverse(330)
	if err != nil {
		t.Fatalf("ApplyInverse failed: %v", err)
	}
	if math.Abs(down-220) > errorThreshold {
		t.Errorf("3/2 inversely applied to 330 Hz = %v, want 220", down)
	}
}

func TestIntervalApplyRangeChecks(t *testing.T) {
	octave := puhdas.Octave
	if _, err := octave.Apply(20000); !errors.Is(err, puhdas.ErrFrequencyTooHigh) {
		t.Errorf("Apply above range error = %v, want ErrFrequencyTooHigh", err)
	}
	if _, err := octave.ApplyInverse(8); !errors.Is(err, puhdas.ErrFrequencyTooLow) {
		t.Errorf("ApplyInverse below range error = %v, want ErrFrequencyTooLow", err)
	}
}

func TestIntervalIsHarmonic(t *testing.T) {
	tests := []struct {
		n, d uint32
		max  uint32
		want bool
	}{
		{3, 2, 8, true},
		{16, 15, 8, false},
		{16, 15, 16, true},
		{2, 1, 1, true},
	}
	for _, test := range tests {
		interval, _ := puhdas.NewInterval(test.n, test.d)
		if got := interval.IsHarmonic(test.max); got != test.want {
			t.Errorf("(%d/%d).IsHarmonic(%d) = %v, want %v", test.n, test.d, test.max, got, test.want)
		}
	}
}

func TestIntervalName(t *testing.T) {
	tests := []struct {
		n, d uint32
		want string
	}{
		{1, 1, "unison"},
		{2, 1, "octave"},
		{3, 2, "perfect fifth"},
		{2, 3, "perfect fifth"}, // direction is ignored
		{45, 32, "augmented fourth"},
		{531441, 524288, ""},
	}
	for _, test := range tests {
		interval, _ := puhdas.NewInterval(test.n, test.d)
		if got := interval.Name(); got != test.want {
			t.Errorf("(%d/%d).Name() = %q, want %q", test.n, test.d, got, test.want)
		}
	}
}

func TestIntervalYamlRoundTrip(t *testing.T) {
	fifth, _ := puhdas.NewInterval(3, 2)
	out, err := yaml.Marshal(fifth)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var parsed puhdas.Interval
	if err := yaml.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if parsed != fifth {
		t.Errorf("round trip = %v, want 3/2", parsed)
	}
}

func TestIntervalYamlBareInteger(t *testing.T) {
	var parsed puhdas.Interval
	if err := yaml.Unmarshal([]byte("2"), &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if parsed != puhdas.Octave {
		t.Errorf("parsed bare 2 as %v, want 2/1", parsed)
	}
	if err := yaml.Unmarshal([]byte(`"cow"`), &parsed); !errors.Is(err, puhdas.ErrInvalidInterval) {
		t.Errorf("parsing garbage gave %v, want ErrInvalidInterval", err)
	}
}

func TestJustInterval(t *testing.T) {
	tests := []struct {
		semitones int
		wantN     uint32
		wantD     uint32
	}{
		{0, 1, 1},
		{7, 3, 2},
		{12, 2, 1},
		{19, 3, 1},
		{-5, 3, 4}, // a fourth down inverts to 3/4
		{-12, 1, 2},
	}
	for _, test := range tests {
		interval, err := puhdas.JustInterval(test.semitones)
		if err != nil {
			t.Fatalf("JustInterval(%d) failed: %v", test.semitones, err)
		}
		if interval.Numerator() != test.wantN || interval.Denominator() != test.wantD {
			t.Errorf("JustInterval(%d) = %v, want %d/%d", test.semitones, interval, test.wantN, test.wantD)
		}
	}
	if _, err := puhdas.JustInterval(500); !errors.Is(err, puhdas.ErrOverflow) {
		t.Errorf("JustInterval(500) error = %v, want ErrOverflow", err)
	}
}
