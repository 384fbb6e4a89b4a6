//go:build onnxruntime

package voiceprint

import (
	"fmt"
	"sync"

	"github.com/yt605155624/Parakeet/pkg/audio/fbank"
	"github.com/yt605155624/Parakeet/pkg/onnx"
)

// ONNXAvailable reports whether the ONNX backend is compiled in.
const ONNXAvailable = true

// ONNXEncoder implements [Encoder] with an exported speaker encoder
// graph run by ONNX Runtime. The graph takes [P, T, n_mels] partials and
// returns [P, E] per-partial embeddings.
type ONNXEncoder struct {
	mu      sync.Mutex
	env     *onnx.Env
	session *onnx.Session
	nMels   int
	dim     int
	closed  bool

	inputName  string
	outputName string
}

// ONNXOption configures an ONNXEncoder.
type ONNXOption func(*onnxSettings)

type onnxSettings struct {
	inputName, outputName string
	session               onnx.SessionOptions
}

// WithONNXNames sets the graph input and output names.
// Default: "mels" and "embeds".
func WithONNXNames(input, output string) ONNXOption {
	return func(s *onnxSettings) {
		s.inputName = input
		s.outputName = output
	}
}

// WithCUDA runs the graph on the given CUDA device.
func WithCUDA(device int) ONNXOption {
	return func(s *onnxSettings) {
		s.session.CUDA = true
		s.session.CUDADevice = device
	}
}

// WithThreads caps intra-op threads.
func WithThreads(n int) ONNXOption {
	return func(s *onnxSettings) {
		s.session.IntraOpThreads = n
	}
}

// NewONNXEncoder loads the .onnx file at path.
func NewONNXEncoder(path string, nMels, dim int, opts ...ONNXOption) (*ONNXEncoder, error) {
	s := onnxSettings{inputName: "mels", outputName: "embeds"}
	for _, opt := range opts {
		opt(&s)
	}

	env, err := onnx.NewEnv("ge2e")
	if err != nil {
		return nil, fmt.Errorf("voiceprint: %w", err)
	}
	session, err := env.NewSessionFromFile(path, s.session)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("voiceprint: %w", err)
	}
	return &ONNXEncoder{
		env:        env,
		session:    session,
		nMels:      nMels,
		dim:        dim,
		inputName:  s.inputName,
		outputName: s.outputName,
	}, nil
}

// EmbedUtterance implements [Encoder].
func (m *ONNXEncoder) EmbedUtterance(partials [][][]float32) ([]float32, error) {
	frames, err := checkPartials(partials, m.nMels)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("voiceprint: encoder is closed")
	}

	data := make([]float32, 0, len(partials)*frames*m.nMels)
	for _, p := range partials {
		data = append(data, fbank.Flatten(p)...)
	}
	input, err := onnx.NewTensor([]int64{int64(len(partials)), int64(frames), int64(m.nMels)}, data)
	if err != nil {
		return nil, fmt.Errorf("voiceprint: create input tensor: %w", err)
	}
	defer input.Close()

	outputs, err := m.session.Run([]string{m.inputName}, []*onnx.Tensor{input}, []string{m.outputName})
	if err != nil {
		return nil, fmt.Errorf("voiceprint: %w", err)
	}
	defer outputs[0].Close()

	flat, err := outputs[0].FloatData()
	if err != nil {
		return nil, fmt.Errorf("voiceprint: %w", err)
	}
	if len(flat) != len(partials)*m.dim {
		return nil, fmt.Errorf("%w: onnx output has %d values, want %d x %d", ErrShapeMismatch, len(flat), len(partials), m.dim)
	}

	embeds := make([][]float32, len(partials))
	for i := range embeds {
		e := flat[i*m.dim : (i+1)*m.dim]
		L2Normalize(e)
		embeds[i] = e
	}
	return MeanNormalize(embeds), nil
}

// Dimension implements [Encoder].
func (m *ONNXEncoder) Dimension() int { return m.dim }

// Close implements [Encoder].
func (m *ONNXEncoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.session.Close()
	m.env.Close()
	return nil
}

func newONNXEncoder(path string, nMels, dim int, device Device) (Encoder, error) {
	var opts []ONNXOption
	if device == DeviceGPU {
		opts = append(opts, WithCUDA(0))
	}
	return NewONNXEncoder(path, nMels, dim, opts...)
}
