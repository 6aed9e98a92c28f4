// Package main provides the entry point for redikv-server.
//
// redikv-server is an in-memory key-value store speaking a subset of the
// Redis serialization protocol over TCP.
//
// Usage:
//
//	redikv-server [flags]
//	redikv-server --config /path/to/config.yaml
//
// The server loads configuration from the optional file and REDIKV_*
// environment variables, optionally restores the newest snapshot, and
// serves until SIGINT or SIGTERM.
package main
