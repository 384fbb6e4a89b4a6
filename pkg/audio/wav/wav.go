// Package wav decodes RIFF/WAVE files into mono float32 waveforms.
//
// Integer PCM of 8, 16, 24 and 32 bits is supported. Multi-channel audio
// is averaged down to mono and samples are scaled to [-1, 1].
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// ErrInvalid is returned when the input is not a decodable WAV stream.
var ErrInvalid = errors.New("wav: invalid file")

// Waveform is a decoded mono signal.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the signal length in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate == 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Decode reads a whole WAV stream.
func Decode(r io.ReadSeeker) (*Waveform, error) {
	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalid
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decode: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, ErrInvalid
	}
	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalid, depth)
	}
	return &Waveform{
		Samples:    downmix(buf, depth),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	w, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// downmix converts interleaved integer samples to mono float32.
func downmix(buf *audio.IntBuffer, depth int) []float32 {
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels

	scale := float64(int64(1) << (depth - 1))
	// 8-bit WAV is unsigned.
	offset := 0.0
	if depth == 8 {
		offset = 128
	}

	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// Encode writes samples as 16-bit PCM mono WAV. Values outside [-1, 1]
// are clipped.
func Encode(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := gowav.NewEncoder(w, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		v := float64(s) * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = int(v)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	return enc.Close()
}

// WriteFile encodes samples to a new WAV file at path.
func WriteFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
