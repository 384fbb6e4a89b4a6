package voiceprint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yt605155624/Parakeet/pkg/cli"
)

// Device selects where the encoder runs.
type Device string

const (
	DeviceCPU Device = "cpu"
	DeviceGPU Device = "gpu"
)

// ParseDevice validates a device name.
func ParseDevice(s string) (Device, error) {
	switch d := Device(strings.ToLower(s)); d {
	case DeviceCPU, DeviceGPU:
		return d, nil
	}
	return "", fmt.Errorf("voiceprint: unknown device %q (want cpu or gpu)", s)
}

// Checkpoint file extensions.
const (
	ExtMsgpack = ".msgpack"
	ExtMpk     = ".mpk"
	ExtONNX    = ".onnx"
)

// ResolveCheckpoint maps a checkpoint path to an existing file. Paths
// with a known extension are used as is; otherwise path+".msgpack" and
// then path+".onnx" are tried. A leading "~" is expanded.
func ResolveCheckpoint(path string) (string, error) {
	path = cli.ExpandUser(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMsgpack, ExtMpk, ExtONNX:
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoCheckpoint, err)
		}
		return path, nil
	}
	for _, ext := range []string{ExtMsgpack, ExtONNX} {
		candidate := path + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("voiceprint: stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("%w: %s{%s,%s}", ErrNoCheckpoint, path, ExtMsgpack, ExtONNX)
}

// LoadEncoder opens the encoder for a checkpoint path. Msgpack
// checkpoints run on the native [LSTMEncoder], which is CPU only; ONNX
// checkpoints run through ONNX Runtime on either device.
func LoadEncoder(cfg *cli.Config, checkpointPath string, device Device) (Encoder, error) {
	path, err := ResolveCheckpoint(checkpointPath)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(filepath.Ext(path)) == ExtONNX {
		return newONNXEncoder(path, cfg.Data.NMels, cfg.Model.EmbeddingSize, device)
	}
	if device == DeviceGPU {
		return nil, fmt.Errorf("%w: gpu needs an .onnx checkpoint, got %s", ErrBackendUnavailable, path)
	}
	ck, err := LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	enc, err := NewLSTMEncoder(ck, cfg.Model, cfg.Data.NMels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return enc, nil
}
