package store

import (
	"errors"
	"sync/atomic"

	"github.com/redikv/redikv-go/pkg/cmap"
)

// ErrMaxMemory is returned by Set when storing the value would push tracked
// memory usage past the configured cap. The store is left unchanged.
var ErrMaxMemory = errors.New("max memory limit exceeded")

// Store is a concurrency-safe mapping from binary keys to binary values.
//
// There is one Store per process, created at startup and shared by every
// connection. It grows without bound unless a max-memory cap is set; there
// is no eviction and no TTL.
type Store struct {
	items *cmap.Map[[]byte]

	// used tracks the approximate memory footprint of stored entries:
	// sum of len(key)+len(value) over all keys.
	used atomic.Int64

	maxMemory int64
}

// Option configures the Store.
type Option func(*Store)

// WithMaxMemory caps tracked memory usage in bytes. Zero means no cap.
func WithMaxMemory(limit int64) Option {
	return func(s *Store) {
		s.maxMemory = limit
	}
}

// WithShards sets the shard count of the underlying map.
func WithShards(n int) Option {
	return func(s *Store) {
		s.items = cmap.NewWithShards[[]byte](n)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items: cmap.New[[]byte](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the value stored under key, or (nil, false) if the
// key is absent.
func (s *Store) Get(key string) ([]byte, bool) {
	val, ok := s.items.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true
}

// Set stores value under key, overwriting unconditionally and creating the
// key if absent. The value is copied; once Set returns, any Get on the same
// key from any goroutine observes the new value in its entirety.
func (s *Store) Set(key string, value []byte) error {
	if s.maxMemory > 0 {
		// Admission check. Overwrite credit for the old value is applied to
		// the usage counter below, not here, so admission near the cap is
		// conservative rather than racy.
		old, exists := s.items.Get(key)
		delta := int64(len(value)) - int64(len(old))
		if !exists {
			delta += int64(len(key))
		}
		if delta > 0 && s.used.Load()+delta > s.maxMemory {
			return ErrMaxMemory
		}
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	s.items.Update(key, func(old []byte, exists bool) []byte {
		delta := int64(len(buf)) - int64(len(old))
		if !exists {
			delta += int64(len(key))
		}
		s.used.Add(delta)
		return buf
	})
	return nil
}

// Delete removes a key. It reports whether the key existed.
func (s *Store) Delete(key string) bool {
	old, ok := s.items.Pop(key)
	if !ok {
		return false
	}
	s.used.Add(-int64(len(key) + len(old)))
	return true
}

// Len returns the number of keys.
func (s *Store) Len() int {
	return s.items.Count()
}

// UsedMemory returns the tracked memory footprint in bytes.
func (s *Store) UsedMemory() int64 {
	return s.used.Load()
}

// MaxMemory returns the configured cap in bytes (0 = uncapped).
func (s *Store) MaxMemory() int64 {
	return s.maxMemory
}

// Range calls fn for every key-value pair. The value slice passed to fn is
// a copy; fn may retain it. Iteration order is unspecified and the view is
// consistent per shard, not across the whole map.
func (s *Store) Range(fn func(key string, value []byte) bool) {
	s.items.Range(func(key string, value []byte) bool {
		out := make([]byte, len(value))
		copy(out, value)
		return fn(key, out)
	})
}
