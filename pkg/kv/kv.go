// Package kv provides a small key-value store with hierarchical keys.
// Keys are string slices (e.g. ["runs", runID, "speaker/a.wav"]) joined
// with a separator byte for storage.
//
// Badger backs on-disk stores; Memory serves tests.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")

	// ErrInvalidKey is returned when a key is empty or a segment contains
	// the separator.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Key is a hierarchical path of string segments.
type Key []string

// String joins the segments with '/' for display.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key Key) error

	// List yields every entry under prefix in lexicographic key order.
	// The prefix matches whole segments only.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}

// DefaultSeparator is the ASCII unit separator. File paths are stored as
// key segments, so ':' and '/' are not usable.
const DefaultSeparator byte = 0x1f

// Options configures key encoding.
type Options struct {
	// Separator joins key segments. Zero means DefaultSeparator.
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

func (o *Options) encode(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return o.encodePrefix(k)
}

// encodePrefix encodes k with a trailing separator so that a prefix
// never matches a longer segment. An empty prefix encodes to nil.
func (o *Options) encodePrefix(k Key) ([]byte, error) {
	s := o.sep()
	var b []byte
	for i, seg := range k {
		if strings.IndexByte(seg, s) >= 0 {
			return nil, fmt.Errorf("%w: segment %q contains separator %q", ErrInvalidKey, seg, s)
		}
		if i > 0 {
			b = append(b, s)
		}
		b = append(b, seg...)
	}
	return b, nil
}

func (o *Options) prefix(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, nil
	}
	b, err := o.encodePrefix(k)
	if err != nil {
		return nil, err
	}
	return append(b, o.sep()), nil
}

func (o *Options) decode(b []byte) Key {
	return Key(strings.Split(string(b), string(o.sep())))
}
