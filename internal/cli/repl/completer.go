package repl

import "strings"

// Completer provides prefix completion over the server's command set.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer seeded with the supported commands.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"get", "set", "info", "command", "memory", "save", "ping", "quit",
		},
	}
}

// Complete returns the commands matching prefix, case-insensitively.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

// Commands returns the full command list.
func (c *Completer) Commands() []string {
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}
