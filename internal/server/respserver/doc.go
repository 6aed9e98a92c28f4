// Package respserver implements the RESP-speaking TCP front end of redikv.
//
// It contains the request-processing pipeline: the wire codec that turns
// raw bytes into frames and typed replies back into bytes, the command
// dispatcher that maps frames onto store operations, and the listener and
// per-connection sessions that tie them together.
//
// The codec has no knowledge of command semantics and the store has no
// knowledge of framing; the dispatcher is the only place the two meet.
package respserver
