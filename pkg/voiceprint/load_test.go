package voiceprint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yt605155624/Parakeet/pkg/cli"
)

func smallConfig() *cli.Config {
	cfg := cli.DefaultConfig()
	cfg.Model = smallModel
	return cfg
}

func TestResolveCheckpoint(t *testing.T) {
	dir := t.TempDir()
	msgpackPath := filepath.Join(dir, "step-1000.msgpack")
	onnxPath := filepath.Join(dir, "exported.onnx")
	bothBase := filepath.Join(dir, "both")
	for _, p := range []string{msgpackPath, onnxPath, bothBase + ".msgpack", bothBase + ".onnx"} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"explicit msgpack", msgpackPath, msgpackPath},
		{"explicit onnx", onnxPath, onnxPath},
		{"base to msgpack", filepath.Join(dir, "step-1000"), msgpackPath},
		{"base to onnx", filepath.Join(dir, "exported"), onnxPath},
		{"msgpack preferred", bothBase, bothBase + ".msgpack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCheckpoint(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ResolveCheckpoint(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	for _, missing := range []string{filepath.Join(dir, "nope"), filepath.Join(dir, "nope.onnx")} {
		if _, err := ResolveCheckpoint(missing); !errors.Is(err, ErrNoCheckpoint) {
			t.Errorf("ResolveCheckpoint(%q): expected ErrNoCheckpoint, got %v", missing, err)
		}
	}
}

func TestLoadEncoderMsgpack(t *testing.T) {
	base := filepath.Join(t.TempDir(), "step-10")
	if err := InitCheckpoint(smallModel, 40, 3).Save(base + ".msgpack"); err != nil {
		t.Fatal(err)
	}

	enc, err := LoadEncoder(smallConfig(), base, DeviceCPU)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	if enc.Dimension() != smallModel.EmbeddingSize {
		t.Errorf("Dimension = %d, want %d", enc.Dimension(), smallModel.EmbeddingSize)
	}

	if _, err := LoadEncoder(smallConfig(), base, DeviceGPU); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("gpu with msgpack: expected ErrBackendUnavailable, got %v", err)
	}

	// The stock configuration does not match the small checkpoint.
	if _, err := LoadEncoder(cli.DefaultConfig(), base, DeviceCPU); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestLoadEncoderONNXUnavailable(t *testing.T) {
	if ONNXAvailable {
		t.Skip("built with onnxruntime")
	}
	path := filepath.Join(t.TempDir(), "model.onnx")
	os.WriteFile(path, []byte("x"), 0644)
	if _, err := LoadEncoder(smallConfig(), path, DeviceCPU); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    Device
		wantErr bool
	}{
		{"cpu", DeviceCPU, false},
		{"GPU", DeviceGPU, false},
		{"tpu", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDevice(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDevice(%q) = %q, %v", tt.in, got, err)
		}
	}
}
