package voiceprint

import (
	"bufio"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/yt605155624/Parakeet/pkg/cli"
)

// Tensor is a named parameter in a [Checkpoint], stored row-major.
type Tensor struct {
	Shape []int     `msgpack:"shape"`
	Data  []float32 `msgpack:"data"`
}

// Checkpoint is a set of named float32 tensors, serialized as msgpack.
//
// The LSTM speaker encoder uses these names (H = hidden size, E =
// embedding size, k = layer index):
//
//	lstm.weight_ih_l{k}  [4H, in]
//	lstm.weight_hh_l{k}  [4H, H]
//	lstm.bias_ih_l{k}    [4H]
//	lstm.bias_hh_l{k}    [4H]
//	linear.weight        [H, E]
//	linear.bias          [E]
//
// Other tensors (e.g. training-only similarity parameters) are ignored.
type Checkpoint struct {
	Meta    map[string]string `msgpack:"meta,omitempty"`
	Tensors map[string]Tensor `msgpack:"tensors"`
}

// NewCheckpoint returns an empty checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{Tensors: make(map[string]Tensor)}
}

// LoadCheckpoint reads a msgpack checkpoint file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("voiceprint: open checkpoint: %w", err)
	}
	defer f.Close()

	var c Checkpoint
	if err := msgpack.NewDecoder(bufio.NewReader(f)).Decode(&c); err != nil {
		return nil, fmt.Errorf("voiceprint: decode checkpoint %s: %w", path, err)
	}
	if c.Tensors == nil {
		c.Tensors = make(map[string]Tensor)
	}
	for name, t := range c.Tensors {
		if n := numel(t.Shape); n != len(t.Data) {
			return nil, fmt.Errorf("%w: tensor %s has shape %v but %d values", ErrShapeMismatch, name, t.Shape, len(t.Data))
		}
	}
	return &c, nil
}

// Save writes c to path. Equal checkpoints produce identical files.
func (c *Checkpoint) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("voiceprint: create checkpoint: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("voiceprint: encode checkpoint: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeMsgpack writes c with meta keys and tensor names in sorted order.
// The generic map encoder walks maps in random order.
func (c *Checkpoint) EncodeMsgpack(enc *msgpack.Encoder) error {
	fields := 1
	if len(c.Meta) > 0 {
		fields++
	}
	if err := enc.EncodeMapLen(fields); err != nil {
		return err
	}
	if len(c.Meta) > 0 {
		if err := enc.EncodeString("meta"); err != nil {
			return err
		}
		keys := make([]string, 0, len(c.Meta))
		for k := range c.Meta {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		if err := enc.EncodeMapLen(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := enc.EncodeString(c.Meta[k]); err != nil {
				return err
			}
		}
	}

	if err := enc.EncodeString("tensors"); err != nil {
		return err
	}
	names := c.Names()
	if err := enc.EncodeMapLen(len(names)); err != nil {
		return err
	}
	for _, name := range names {
		if err := enc.EncodeString(name); err != nil {
			return err
		}
		if err := enc.Encode(c.Tensors[name]); err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
	}
	return nil
}

// Set stores a tensor under name.
func (c *Checkpoint) Set(name string, shape []int, data []float32) {
	c.Tensors[name] = Tensor{Shape: slices.Clone(shape), Data: data}
}

// Get returns the data of tensor name, which must have exactly shape.
func (c *Checkpoint) Get(name string, shape ...int) ([]float32, error) {
	t, ok := c.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("voiceprint: checkpoint has no tensor %q", name)
	}
	if !slices.Equal(t.Shape, shape) {
		return nil, fmt.Errorf("%w: %s is %v, want %v", ErrShapeMismatch, name, t.Shape, shape)
	}
	return t.Data, nil
}

// Names returns the sorted tensor names.
func (c *Checkpoint) Names() []string {
	names := make([]string, 0, len(c.Tensors))
	for name := range c.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// InitCheckpoint returns an LSTM encoder checkpoint with weights drawn
// uniformly from ±1/sqrt(H), seeded for reproducibility.
func InitCheckpoint(cfg cli.ModelConfig, nMels int, seed uint64) *Checkpoint {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	bound := 1 / math.Sqrt(float64(cfg.HiddenSize))
	fill := func(shape ...int) []float32 {
		data := make([]float32, numel(shape))
		for i := range data {
			data[i] = float32((rng.Float64()*2 - 1) * bound)
		}
		return data
	}

	h := cfg.HiddenSize
	c := NewCheckpoint()
	c.Meta = map[string]string{"arch": "lstm_speaker_encoder"}
	for k := 0; k < cfg.NumLayers; k++ {
		in := h
		if k == 0 {
			in = nMels
		}
		c.Set(fmt.Sprintf("lstm.weight_ih_l%d", k), []int{4 * h, in}, fill(4*h, in))
		c.Set(fmt.Sprintf("lstm.weight_hh_l%d", k), []int{4 * h, h}, fill(4*h, h))
		c.Set(fmt.Sprintf("lstm.bias_ih_l%d", k), []int{4 * h}, fill(4*h))
		c.Set(fmt.Sprintf("lstm.bias_hh_l%d", k), []int{4 * h}, fill(4*h))
	}
	c.Set("linear.weight", []int{h, cfg.EmbeddingSize}, fill(h, cfg.EmbeddingSize))
	c.Set("linear.bias", []int{cfg.EmbeddingSize}, fill(cfg.EmbeddingSize))
	c.Set("similarity_weight", []int{1}, []float32{10})
	c.Set("similarity_bias", []int{1}, []float32{-5})
	return c
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
