package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Executor runs one parsed command line and returns printable output.
type Executor func(args []string) (string, error)

// REPL is the interactive loop of redikv-cli.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	completer *Completer
	history   *History
	execute   Executor
}

// Option configures the REPL.
type Option func(*REPL)

// WithInput overrides stdin, for tests.
func WithInput(r io.Reader) Option {
	return func(rp *REPL) { rp.input = r }
}

// WithOutput overrides stdout, for tests.
func WithOutput(w io.Writer) Option {
	return func(rp *REPL) { rp.output = w }
}

// WithHistory overrides the default history.
func WithHistory(h *History) Option {
	return func(rp *REPL) { rp.history = h }
}

// New creates a REPL that runs lines through execute.
func New(execute Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    "redikv> ",
		completer: NewCompleter(),
		history:   NewHistory(),
		execute:   execute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF or an exit command. History is loaded on entry
// and saved on exit, best effort.
func (r *REPL) Run() error {
	_ = r.history.Load()
	defer func() { _ = r.history.Save() }()

	reader := bufio.NewReader(r.input)
	for {
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		case "help":
			r.printHelp()
			continue
		}

		args := strings.Fields(line)
		out, err := r.execute(args)
		if err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Fprintln(r.output, out)
		}
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.output, "Commands:")
	for _, c := range r.completer.Commands() {
		fmt.Fprintf(r.output, "  %s\n", c)
	}
	fmt.Fprintln(r.output, "  help")
	fmt.Fprintln(r.output, "  exit")
}
