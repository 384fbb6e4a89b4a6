package kv_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/yt605155624/Parakeet/pkg/kv"
)

// stores returns one fresh store per implementation.
func stores(t *testing.T, opts *kv.Options) map[string]kv.Store {
	t.Helper()
	b, err := kv.NewBadger(kv.BadgerOptions{Options: opts, InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]kv.Store{
		"memory": kv.NewMemory(opts),
		"badger": b,
	}
}

func listKeys(t *testing.T, s kv.Store, prefix kv.Key) []string {
	t.Helper()
	var got []string
	for e, err := range s.List(context.Background(), prefix) {
		if err != nil {
			t.Fatalf("List(%v): %v", prefix, err)
		}
		got = append(got, e.Key.String())
	}
	return got
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, nil) {
		t.Run(name, func(t *testing.T) {
			key := kv.Key{"runs", "r1", "spk1/a.wav"}

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := s.Set(ctx, key, []byte("hello")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, key, []byte("world")); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "world" {
				t.Fatalf("Get = %q, want %q", got, "world")
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, kv.Key{"no", "such"}); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, nil) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []kv.Key{
				{"runs", "r2", "b.wav"},
				{"runs", "r1", "c:/x.wav"},
				{"runs", "r1", "a.wav"},
				{"runs10", "r1", "z.wav"},
				{"meta", "r1"},
			} {
				if err := s.Set(ctx, k, []byte("v")); err != nil {
					t.Fatal(err)
				}
			}

			tests := []struct {
				prefix kv.Key
				want   []string
			}{
				{kv.Key{"runs", "r1"}, []string{"runs/r1/a.wav", "runs/r1/c:/x.wav"}},
				{kv.Key{"runs"}, []string{"runs/r1/a.wav", "runs/r1/c:/x.wav", "runs/r2/b.wav"}},
				{kv.Key{"nothing"}, nil},
				{nil, []string{"meta/r1", "runs/r1/a.wav", "runs/r1/c:/x.wav", "runs/r2/b.wav", "runs10/r1/z.wav"}},
			}
			for _, tt := range tests {
				if got := listKeys(t, s, tt.prefix); !slices.Equal(got, tt.want) {
					t.Errorf("List(%v) = %v, want %v", tt.prefix, got, tt.want)
				}
			}
		})
	}
}

func TestListEarlyStop(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, nil) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"a", "b", "c"} {
				s.Set(ctx, kv.Key{"p", k}, []byte(k))
			}
			n := 0
			for _, err := range s.List(ctx, kv.Key{"p"}) {
				if err != nil {
					t.Fatal(err)
				}
				n++
				if n == 2 {
					break
				}
			}
			if n != 2 {
				t.Fatalf("iterated %d entries, want 2", n)
			}
		})
	}
}

func TestCustomSeparator(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, &kv.Options{Separator: ':'}) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, kv.Key{"path", "to", "value"}, []byte("data")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got := listKeys(t, s, kv.Key{"path", "to"}); !slices.Equal(got, []string{"path/to/value"}) {
				t.Fatalf("List = %v", got)
			}
			if err := s.Set(ctx, kv.Key{"bad:seg"}, nil); !errors.Is(err, kv.ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestInvalidKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, nil) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, nil, []byte("v")); !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Set(nil): %v", err)
			}
			if _, err := s.Get(ctx, kv.Key{"a\x1fb"}); !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Get with separator: %v", err)
			}
			for _, err := range s.List(ctx, kv.Key{"a\x1fb"}) {
				if !errors.Is(err, kv.ErrInvalidKey) {
					t.Errorf("List with separator: %v", err)
				}
			}
		})
	}
}

func TestValueIsolation(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, nil) {
		t.Run(name, func(t *testing.T) {
			key := kv.Key{"iso"}
			original := []byte("original")
			s.Set(ctx, key, original)
			original[0] = 'X'

			got, err := s.Get(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			if got[0] != 'o' {
				t.Fatal("store value was mutated via original slice")
			}
			got[0] = 'Y'
			if again, _ := s.Get(ctx, key); again[0] != 'o' {
				t.Fatal("store value was mutated via returned slice")
			}
		})
	}
}

func TestBadgerOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, kv.Key{"k"}, []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{"k"})
	if err != nil || string(got) != "persisted" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}

func TestBadgerDirRequired(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}
