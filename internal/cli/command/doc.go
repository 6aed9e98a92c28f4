// Package command defines the redikv-cli command tree.
//
// It uses urfave/cli/v2 and supports both single-command mode (redikv-cli
// get key) and interactive mode: running with no subcommand starts the
// REPL from the repl package.
package command
