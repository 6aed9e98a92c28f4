// Package repl provides the interactive mode for redikv-cli.
//
// It implements the read-eval-print loop: line editing is left to the
// terminal, while this package handles the prompt, command history, and
// prefix completion over the server's command set.
package repl
