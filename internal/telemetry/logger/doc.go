// Package logger provides structured logging for redikv.
//
// It wraps log/slog with JSON/text output selection and a dynamically
// adjustable global level, so a config reload can change verbosity without
// a restart.
package logger
