//go:build !onnxruntime

package voiceprint

import "fmt"

// ONNXAvailable reports whether the ONNX backend is compiled in.
const ONNXAvailable = false

func newONNXEncoder(path string, _, _ int, _ Device) (Encoder, error) {
	return nil, fmt.Errorf("%w: %s needs a binary built with -tags onnxruntime", ErrBackendUnavailable, path)
}
