package inference

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sbinet/npyio"

	"github.com/yt605155624/Parakeet/pkg/storage"
)

// WriteEmbedding encodes emb as a 1-D little-endian float32 .npy array.
func WriteEmbedding(w io.Writer, emb []float32) error {
	if err := npyio.Write(w, emb); err != nil {
		return fmt.Errorf("inference: encode npy: %w", err)
	}
	return nil
}

// ReadEmbedding decodes a 1-D float32 .npy array.
func ReadEmbedding(r io.Reader) ([]float32, error) {
	var emb []float32
	if err := npyio.Read(r, &emb); err != nil {
		return nil, fmt.Errorf("inference: decode npy: %w", err)
	}
	return emb, nil
}

// SaveEmbedding writes emb to name in store. On failure an existing file
// at name is left as it was.
func SaveEmbedding(ctx context.Context, store storage.FileStore, name string, emb []float32) error {
	w, err := store.Write(ctx, name)
	if err != nil {
		return err
	}
	if err := WriteEmbedding(w, emb); err != nil {
		w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("inference: close %s: %w", name, err)
	}
	return nil
}

// LoadEmbedding reads name from store.
func LoadEmbedding(ctx context.Context, store storage.FileStore, name string) ([]float32, error) {
	r, err := store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	emb, err := ReadEmbedding(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return emb, nil
}

// Embedding is a stored embedding and its path in the store.
type Embedding struct {
	Path   string
	Vector []float32
}

// Speaker returns the parent directory of the embedding, which for the
// usual speaker/utterance layout names the speaker. Top-level files
// return "".
func (e Embedding) Speaker() string {
	dir := path.Dir(e.Path)
	if dir == "." {
		return ""
	}
	return dir
}

// LoadEmbeddings reads every .npy file in store, sorted by path.
func LoadEmbeddings(ctx context.Context, store storage.FileStore) ([]Embedding, error) {
	names, err := store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("inference: list %s: %w", store.URI(), err)
	}
	var out []Embedding
	for _, name := range names {
		if !strings.HasSuffix(name, EmbeddingExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := LoadEmbedding(ctx, store, name)
		if err != nil {
			return nil, err
		}
		out = append(out, Embedding{Path: name, Vector: emb})
	}
	return out, nil
}
