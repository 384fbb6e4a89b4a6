package kv

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-memory Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	opts *Options
}

// NewMemory creates an empty Memory store. opts may be nil.
func NewMemory(opts *Options) *Memory {
	return &Memory{data: make(map[string][]byte), opts: opts}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k, err := m.opts.encode(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	v, ok := m.data[string(k)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	k, err := m.opts.encode(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[string(k)] = bytes.Clone(value)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	k, err := m.opts.encode(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, string(k))
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		p, err := m.opts.prefix(prefix)
		if err != nil {
			yield(Entry{}, err)
			return
		}

		// Snapshot under the read lock so yield may call back into m.
		m.mu.RLock()
		var keys []string
		for k := range m.data {
			if strings.HasPrefix(k, string(p)) {
				keys = append(keys, k)
			}
		}
		vals := make(map[string][]byte, len(keys))
		for _, k := range keys {
			vals[k] = bytes.Clone(m.data[k])
		}
		m.mu.RUnlock()

		slices.Sort(keys)
		for _, k := range keys {
			if !yield(Entry{Key: m.opts.decode([]byte(k)), Value: vals[k]}, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
