// Package snapshot persists point-in-time copies of the key-value store.
//
// A snapshot file carries magic bytes, a JSON header, length-prefixed
// key-value records, and a sha256 checksum trailer. Files are written to a
// temp path and renamed into place, so a crash mid-write never leaves a
// readable-but-truncated snapshot behind.
package snapshot
