package resampler

import (
	"errors"
	"fmt"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrInvalidRate is returned when a sample rate is not positive.
var ErrInvalidRate = errors.New("resampler: invalid sample rate")

// Resampler converts whole signals from one rate to another. A Resampler
// holds filter state, so it is not safe for concurrent use.
type Resampler struct {
	from, to int
	lead     int // zero input samples put before the signal
	shift    int // index of input sample 0 in the backend output
	rs       resampling.Resampler
}

// shifts caches the measured output shift per rate pair.
var shifts sync.Map

// New creates a high quality mono resampler from one rate to another.
func New(from, to int) (*Resampler, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, from, to)
	}
	r := &Resampler{from: from, to: to}
	if from == to {
		return r, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}
	r.rs = rs

	// The lead is a whole number of rate periods, so input sample 0
	// always lands on an output sample.
	period := 2 * from / gcd(from, to)
	r.lead = period * ((from/4 + period - 1) / period)

	key := [2]int{from, to}
	if v, ok := shifts.Load(key); ok {
		r.shift = v.(int)
		return r, nil
	}
	if r.shift, err = r.measureShift(); err != nil {
		return nil, err
	}
	shifts.Store(key, r.shift)
	return r, nil
}

// OutputLength returns the number of samples a signal of n input samples
// has after conversion.
func (r *Resampler) OutputLength(n int) int {
	return int(math.Ceil(float64(n) * float64(r.to) / float64(r.from)))
}

// Process converts a complete signal. Output sample i is aligned with
// input time i/to, and the output has [Resampler.OutputLength] samples.
func (r *Resampler) Process(samples []float32) ([]float32, error) {
	if r.rs == nil {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}

	res, err := r.run(samples)
	if err != nil {
		return nil, err
	}
	out := make([]float32, r.OutputLength(len(samples)))
	for i := range out {
		if j := r.shift + i; j >= 0 && j < len(res) {
			out[i] = float32(res[j])
		}
	}
	return out, nil
}

// run passes samples through the backend between r.lead zeros and a
// quarter second of silence that drains the filter. The backend is reset
// afterwards.
func (r *Resampler) run(samples []float32) ([]float64, error) {
	defer r.rs.Reset()

	in := make([]float64, r.lead+len(samples)+r.from/4)
	for i, s := range samples {
		in[r.lead+i] = float64(s)
	}
	res, err := r.rs.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	tail, err := r.rs.Flush()
	if err != nil {
		return nil, fmt.Errorf("resampler: flush: %w", err)
	}
	return append(res, tail...), nil
}

// measureShift finds where an impulse at input sample 0 peaks in the
// backend output.
func (r *Resampler) measureShift() (int, error) {
	impulse := make([]float32, r.from/4)
	impulse[0] = 1
	res, err := r.run(impulse)
	if err != nil {
		return 0, err
	}
	peak := 0
	for i, v := range res {
		if math.Abs(v) > math.Abs(res[peak]) {
			peak = i
		}
	}
	return peak, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Resample converts samples from rate from to rate to with a fresh
// [Resampler].
func Resample(samples []float32, from, to int) ([]float32, error) {
	r, err := New(from, to)
	if err != nil {
		return nil, err
	}
	return r.Process(samples)
}
