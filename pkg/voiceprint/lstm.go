package voiceprint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/yt605155624/Parakeet/pkg/cli"
)

type lstmLayer struct {
	hidden int
	wih    *mat.Dense // [4H, in]
	whh    *mat.Dense // [4H, H]
	bias   []float64  // b_ih + b_hh, [4H]
}

// LSTMEncoder is the GE2E speaker encoder: a stacked LSTM whose final
// hidden state is projected by a linear layer with ReLU and normalized.
// It runs on the CPU.
type LSTMEncoder struct {
	nMels  int
	layers []lstmLayer
	linW   *mat.Dense // [H, E]
	linB   []float64  // [E]
}

// NewLSTMEncoder builds an encoder from checkpoint tensors. Every tensor
// shape must agree with cfg and nMels.
func NewLSTMEncoder(ck *Checkpoint, cfg cli.ModelConfig, nMels int) (*LSTMEncoder, error) {
	h, e := cfg.HiddenSize, cfg.EmbeddingSize
	enc := &LSTMEncoder{nMels: nMels}
	for k := 0; k < cfg.NumLayers; k++ {
		in := h
		if k == 0 {
			in = nMels
		}
		wih, err := ck.Get(fmt.Sprintf("lstm.weight_ih_l%d", k), 4*h, in)
		if err != nil {
			return nil, err
		}
		whh, err := ck.Get(fmt.Sprintf("lstm.weight_hh_l%d", k), 4*h, h)
		if err != nil {
			return nil, err
		}
		bih, err := ck.Get(fmt.Sprintf("lstm.bias_ih_l%d", k), 4*h)
		if err != nil {
			return nil, err
		}
		bhh, err := ck.Get(fmt.Sprintf("lstm.bias_hh_l%d", k), 4*h)
		if err != nil {
			return nil, err
		}
		bias := make([]float64, 4*h)
		for i := range bias {
			bias[i] = float64(bih[i]) + float64(bhh[i])
		}
		enc.layers = append(enc.layers, lstmLayer{
			hidden: h,
			wih:    mat.NewDense(4*h, in, widen(wih)),
			whh:    mat.NewDense(4*h, h, widen(whh)),
			bias:   bias,
		})
	}
	if _, ok := ck.Tensors[fmt.Sprintf("lstm.weight_ih_l%d", cfg.NumLayers)]; ok {
		return nil, fmt.Errorf("%w: checkpoint has more than %d lstm layers", ErrShapeMismatch, cfg.NumLayers)
	}

	w, err := ck.Get("linear.weight", h, e)
	if err != nil {
		return nil, err
	}
	b, err := ck.Get("linear.bias", e)
	if err != nil {
		return nil, err
	}
	enc.linW = mat.NewDense(h, e, widen(w))
	enc.linB = widen(b)
	return enc, nil
}

// EmbedUtterance implements [Encoder].
func (m *LSTMEncoder) EmbedUtterance(partials [][][]float32) ([]float32, error) {
	if _, err := checkPartials(partials, m.nMels); err != nil {
		return nil, err
	}
	embeds := make([][]float32, len(partials))
	for i, p := range partials {
		embeds[i] = m.embedPartial(p)
	}
	return MeanNormalize(embeds), nil
}

// Dimension implements [Encoder].
func (m *LSTMEncoder) Dimension() int { return len(m.linB) }

// Close implements [Encoder].
func (m *LSTMEncoder) Close() error { return nil }

// embedPartial runs one [T][nMels] partial through the network.
func (m *LSTMEncoder) embedPartial(frames [][]float32) []float32 {
	x := mat.NewDense(len(frames), m.nMels, nil)
	for t, f := range frames {
		row := x.RawRowView(t)
		for j, v := range f {
			row[j] = float64(v)
		}
	}

	var h []float64
	for _, layer := range m.layers {
		x, h = layer.forward(x)
	}

	var out mat.VecDense
	out.MulVec(m.linW.T(), mat.NewVecDense(len(h), h))
	embed := make([]float32, len(m.linB))
	for j := range embed {
		v := out.AtVec(j) + m.linB[j]
		if v < 0 {
			v = 0
		}
		embed[j] = float32(v)
	}
	L2Normalize(embed)
	return embed
}

// forward runs the layer over the whole sequence x [T, in] from a zero
// state. It returns the hidden sequence [T, H] and the last hidden state.
func (l *lstmLayer) forward(x *mat.Dense) (*mat.Dense, []float64) {
	steps, _ := x.Dims()
	hs := l.hidden

	var gates mat.Dense
	gates.Mul(x, l.wih.T())

	seq := mat.NewDense(steps, hs, nil)
	h := make([]float64, hs)
	c := make([]float64, hs)
	hv := mat.NewVecDense(hs, h)
	var rec mat.VecDense
	for t := 0; t < steps; t++ {
		rec.MulVec(l.whh, hv)
		g := gates.RawRowView(t)
		for j := 0; j < hs; j++ {
			in := sigmoid(g[j] + rec.AtVec(j) + l.bias[j])
			forget := sigmoid(g[hs+j] + rec.AtVec(hs+j) + l.bias[hs+j])
			cell := math.Tanh(g[2*hs+j] + rec.AtVec(2*hs+j) + l.bias[2*hs+j])
			out := sigmoid(g[3*hs+j] + rec.AtVec(3*hs+j) + l.bias[3*hs+j])
			c[j] = forget*c[j] + in*cell
			h[j] = out * math.Tanh(c[j])
		}
		copy(seq.RawRowView(t), h)
	}
	return seq, h
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func widen(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
