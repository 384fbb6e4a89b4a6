package voiceprint

import (
	"errors"
	"testing"
)

// nonZeroVAD marks a window as speech when any sample is non-zero.
type nonZeroVAD struct{}

func (nonZeroVAD) IsSpeech(frame []int16, _ int) (bool, error) {
	for _, s := range frame {
		if s != 0 {
			return true, nil
		}
	}
	return false, nil
}

type failingVAD struct{}

func (failingVAD) IsSpeech([]int16, int) (bool, error) { return false, errors.New("boom") }

// windows builds a waveform of 480-sample windows, loud where pattern is
// true, followed by tail extra samples.
func windows(pattern []bool, tail int) []float32 {
	out := make([]float32, len(pattern)*480+tail)
	for w, on := range pattern {
		if !on {
			continue
		}
		for i := w * 480; i < (w+1)*480; i++ {
			out[i] = 0.5
		}
	}
	return out
}

func runs(spec ...int) []bool {
	var out []bool
	on := true
	for _, n := range spec {
		for range n {
			out = append(out, on)
		}
		on = !on
	}
	return out
}

func TestSmoothFlags(t *testing.T) {
	tests := []struct {
		name  string
		in    []bool
		width int
		want  []bool
	}{
		{"identity", runs(2, 1, 2), 1, runs(2, 1, 2)},
		{"fill single gap", runs(2, 1, 2), 3, runs(5)},
		{"half rounds down", []bool{true, false}, 2, []bool{false, false}},
		{"drop isolated", []bool{false, false, true, false, false}, 3, []bool{false, false, false, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := smoothFlags(tt.in, tt.width)
			if !equalBools(got, tt.want) {
				t.Errorf("smoothFlags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDilate(t *testing.T) {
	in := []bool{false, false, false, true, false, false, false}
	tests := []struct {
		size int
		want []bool
	}{
		{1, in},
		{3, []bool{false, false, true, true, true, false, false}},
		{2, []bool{false, false, true, true, false, false, false}},
		{7, []bool{true, true, true, true, true, true, true}},
	}
	for _, tt := range tests {
		if got := dilate(in, tt.size); !equalBools(got, tt.want) {
			t.Errorf("dilate(size=%d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestTrimLongSilencesIdentityParams(t *testing.T) {
	pattern := runs(3, 2, 4, 1)
	wav := windows(pattern, 100)
	got, err := TrimLongSilences(wav, 16000, VADParams{WindowMs: 30, MovingAverageWidth: 1, MaxSilenceLength: 0}, nonZeroVAD{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 7*480 {
		t.Fatalf("len = %d, want %d", len(got), 7*480)
	}
	for i, v := range got {
		if v != 0.5 {
			t.Fatalf("sample %d = %v, want only voiced samples", i, v)
		}
	}
}

func TestTrimLongSilencesDefaults(t *testing.T) {
	// 20 voiced, 2 silent, 20 voiced, 30 silent, 20 voiced windows.
	pattern := runs(20, 2, 20, 30, 20)
	wav := windows(pattern, 123)
	got, err := TrimLongSilences(wav, 16000, VADParams{WindowMs: 30, MovingAverageWidth: 8, MaxSilenceLength: 6}, nonZeroVAD{})
	if err != nil {
		t.Fatal(err)
	}
	// The short gap survives; the long one shrinks to the dilation
	// margins around its smoothed edges.
	if want := 67 * 480; len(got) != want {
		t.Errorf("len = %d, want %d", len(got), want)
	}
}

func TestTrimLongSilencesEnergyVAD(t *testing.T) {
	wav := windows(runs(10, 40, 10), 0)
	got, err := TrimLongSilences(wav, 16000, VADParams{WindowMs: 30, MovingAverageWidth: 8, MaxSilenceLength: 6}, EnergyVAD{Threshold: DefaultEnergyThreshold})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) >= len(wav) || len(got) == 0 {
		t.Errorf("len = %d of %d, expected silence removed", len(got), len(wav))
	}
}

func TestTrimLongSilencesErrors(t *testing.T) {
	wav := windows(runs(3), 0)
	if _, err := TrimLongSilences(wav, 16000, VADParams{WindowMs: 0, MovingAverageWidth: 1}, nonZeroVAD{}); err == nil {
		t.Error("expected error for zero window")
	}
	if _, err := TrimLongSilences(wav, 16000, VADParams{WindowMs: 30, MovingAverageWidth: 1}, failingVAD{}); err == nil {
		t.Error("expected detector error")
	}
}

func TestTrimLongSilencesShortInput(t *testing.T) {
	got, err := TrimLongSilences(make([]float32, 100), 16000, VADParams{WindowMs: 30, MovingAverageWidth: 8, MaxSilenceLength: 6}, nonZeroVAD{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestEnergyVAD(t *testing.T) {
	v := EnergyVAD{Threshold: DefaultEnergyThreshold}
	loud := make([]int16, 480)
	for i := range loud {
		loud[i] = 5000
	}
	quiet := make([]int16, 480)
	for i := range quiet {
		quiet[i] = 50
	}
	if ok, _ := v.IsSpeech(loud, 16000); !ok {
		t.Error("loud frame not speech")
	}
	if ok, _ := v.IsSpeech(quiet, 16000); ok {
		t.Error("quiet frame is speech")
	}
	if ok, _ := v.IsSpeech(nil, 16000); ok {
		t.Error("empty frame is speech")
	}
}

func TestQuantize16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-2, -32768},
		{0.5, 16384},
	}
	for _, tt := range tests {
		if got := quantize16(tt.in); got != tt.want {
			t.Errorf("quantize16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func equalBools(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
