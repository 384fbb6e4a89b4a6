package voiceprint

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestCheckpointSaveLoad(t *testing.T) {
	dir := t.TempDir()
	ck := InitCheckpoint(smallModel, 40, 5)
	path := filepath.Join(dir, "model.msgpack")
	if err := ck.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Meta["arch"] != "lstm_speaker_encoder" {
		t.Errorf("meta = %v", loaded.Meta)
	}
	names := loaded.Names()
	if len(names) != len(ck.Tensors) {
		t.Fatalf("names = %v", names)
	}

	a, _ := NewLSTMEncoder(ck, smallModel, 40)
	b, err := NewLSTMEncoder(loaded, smallModel, 40)
	if err != nil {
		t.Fatal(err)
	}
	partials := randomPartials(2, 12, 40, 9)
	ea, _ := a.EmbedUtterance(partials)
	eb, _ := b.EmbedUtterance(partials)
	for i := range ea {
		if ea[i] != eb[i] {
			t.Fatalf("embeddings differ after round trip: %v vs %v", ea, eb)
		}
	}
}

func TestCheckpointSaveDeterministic(t *testing.T) {
	dir := t.TempDir()
	ck := InitCheckpoint(smallModel, 40, 5)
	ck.Meta["source"] = "test"
	ck.Meta["arch2"] = "x"

	first := filepath.Join(dir, "first.msgpack")
	if err := ck.Save(first); err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 20 {
		path := filepath.Join(dir, "again.msgpack")
		ck2 := InitCheckpoint(smallModel, 40, 5)
		ck2.Meta["source"] = "test"
		ck2.Meta["arch2"] = "x"
		if err := ck2.Save(path); err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("save %d: same checkpoint saved to different bytes", i)
		}
	}

	loaded, err := LoadCheckpoint(first)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Meta["source"] != "test" || len(loaded.Tensors) != len(ck.Tensors) {
		t.Errorf("loaded meta %v, %d tensors", loaded.Meta, len(loaded.Tensors))
	}
}

func TestCheckpointSaveWithoutMeta(t *testing.T) {
	ck := NewCheckpoint()
	ck.Set("b", []int{1}, []float32{2})
	ck.Set("a", []int{2}, []float32{0, 1})
	path := filepath.Join(t.TempDir(), "m.msgpack")
	if err := ck.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Meta != nil {
		t.Errorf("meta = %v, want nil", loaded.Meta)
	}
	if got, err := loaded.Get("a", 2); err != nil || got[1] != 1 {
		t.Errorf("Get(a) = %v, %v", got, err)
	}
}

func TestCheckpointGet(t *testing.T) {
	ck := NewCheckpoint()
	ck.Set("w", []int{2, 3}, make([]float32, 6))

	if _, err := ck.Get("w", 2, 3); err != nil {
		t.Errorf("Get: %v", err)
	}
	if _, err := ck.Get("w", 3, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := ck.Get("missing", 1); err == nil {
		t.Error("expected error for missing tensor")
	}
}

func TestLoadCheckpointErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadCheckpoint(filepath.Join(dir, "missing.msgpack")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.msgpack")
	os.WriteFile(garbage, []byte("not msgpack at all"), 0644)
	if _, err := LoadCheckpoint(garbage); err == nil {
		t.Error("expected decode error")
	}

	// A tensor whose data does not fill its shape.
	bad := Checkpoint{Tensors: map[string]Tensor{"w": {Shape: []int{2, 2}, Data: []float32{1}}}}
	data, err := msgpack.Marshal(&bad)
	if err != nil {
		t.Fatal(err)
	}
	badPath := filepath.Join(dir, "bad.msgpack")
	os.WriteFile(badPath, data, 0644)
	if _, err := LoadCheckpoint(badPath); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}
