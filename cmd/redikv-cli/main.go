// Package main provides the entry point for redikv-cli.
//
// redikv-cli talks RESP to a redikv-server, in single-command mode or as
// an interactive REPL.
package main

import (
	"fmt"
	"os"

	"github.com/redikv/redikv-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
