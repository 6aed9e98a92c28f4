// Package store provides the in-memory key-value store shared by all
// client sessions.
//
// The store maps binary-safe keys to binary-safe values on top of the
// sharded concurrent map in pkg/cmap. It knows nothing about the wire
// protocol: callers see atomic Get/Set primitives with read-after-write
// visibility across goroutines.
//
// Values are copied on the way in and on the way out, so a caller can
// never observe a partially-written value or mutate stored state through
// a retained slice.
package store
