package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/yt605155624/Parakeet/pkg/kv"
	"github.com/yt605155624/Parakeet/pkg/voiceprint"
)

// Voice hash parameters. The seed is fixed so hashes from different runs
// are comparable.
const (
	HashBits = 16
	HashSeed = 0x9e2e
)

// Record describes one embedded utterance.
type Record struct {
	Input      string    `msgpack:"input"`
	Output     string    `msgpack:"output"`
	Dim        int       `msgpack:"dim"`
	Partials   int       `msgpack:"partials"`
	Samples    int       `msgpack:"samples"`
	SampleRate int       `msgpack:"sample_rate"`
	VoiceHash  string    `msgpack:"voice_hash"`
	RunID      string    `msgpack:"run_id"`
	CreatedAt  time.Time `msgpack:"created_at"`
}

// Duration returns the length of the trimmed audio.
func (r Record) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(r.Samples) * time.Second / time.Duration(r.SampleRate)
}

// Index records which utterances were embedded, per run and by input.
//
// Keys:
//
//	runs / <run id> / <input>   one record per utterance of a run
//	utts / <input>              the latest record for an input
type Index struct {
	store  kv.Store
	hasher *voiceprint.Hasher
}

// NewIndex wraps store. hasher may be nil to leave VoiceHash empty.
func NewIndex(store kv.Store, hasher *voiceprint.Hasher) *Index {
	return &Index{store: store, hasher: hasher}
}

// OpenIndex opens a Badger index in dir for embeddings of size dim.
func OpenIndex(dir string, dim int) (*Index, error) {
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("inference: open index: %w", err)
	}
	h, err := voiceprint.NewHasher(dim, HashBits, HashSeed)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("inference: open index: %w", err)
	}
	return NewIndex(store, h), nil
}

// Put stores rec, filling VoiceHash from emb.
func (ix *Index) Put(ctx context.Context, rec Record, emb []float32) error {
	if ix.hasher != nil {
		h, err := ix.hasher.Hash(emb)
		if err != nil {
			return fmt.Errorf("inference: index %s: %w", rec.Input, err)
		}
		rec.VoiceHash = h
	}
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("inference: index %s: %w", rec.Input, err)
	}
	if err := ix.store.Set(ctx, kv.Key{"runs", rec.RunID, rec.Input}, data); err != nil {
		return fmt.Errorf("inference: index %s: %w", rec.Input, err)
	}
	if err := ix.store.Set(ctx, kv.Key{"utts", rec.Input}, data); err != nil {
		return fmt.Errorf("inference: index %s: %w", rec.Input, err)
	}
	return nil
}

// Latest returns the most recent record for input, or kv.ErrNotFound.
func (ix *Index) Latest(ctx context.Context, input string) (Record, error) {
	data, err := ix.store.Get(ctx, kv.Key{"utts", input})
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("inference: decode record %s: %w", input, err)
	}
	return rec, nil
}

// Records returns the records of runID sorted by input. An empty runID
// returns the latest record of every input.
func (ix *Index) Records(ctx context.Context, runID string) ([]Record, error) {
	prefix := kv.Key{"utts"}
	if runID != "" {
		prefix = kv.Key{"runs", runID}
	}
	var out []Record
	for e, err := range ix.store.List(ctx, prefix) {
		if err != nil {
			return nil, fmt.Errorf("inference: list index: %w", err)
		}
		var rec Record
		if err := msgpack.Unmarshal(e.Value, &rec); err != nil {
			return nil, fmt.Errorf("inference: decode record %s: %w", e.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close closes the underlying store.
func (ix *Index) Close() error {
	return ix.store.Close()
}
