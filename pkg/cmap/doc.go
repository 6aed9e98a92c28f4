// Package cmap provides a sharded concurrent map keyed by binary-safe strings.
//
// Sharding keeps lock contention low when many connections hit the map at
// once: each key hashes to exactly one shard, and each shard is guarded by
// its own RWMutex. Readers of one key never contend with writers of a key
// that lives on a different shard.
//
// All operations are safe for concurrent use. Get/Has take a read lock;
// Set/Delete/Update take the write lock of a single shard only.
package cmap
