package repl

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestREPL(t *testing.T, input string, execute Executor) (*REPL, *strings.Builder) {
	t.Helper()
	var out strings.Builder
	r := New(execute,
		WithInput(strings.NewReader(input)),
		WithOutput(&out),
		WithHistory(NewHistoryFile(filepath.Join(t.TempDir(), "history"))),
	)
	return r, &out
}

func TestRunExecutesCommands(t *testing.T) {
	var got [][]string
	r, out := newTestREPL(t, "get alpha\nset alpha one\n", func(args []string) (string, error) {
		got = append(got, args)
		return "done", nil
	})

	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("executed %d commands, want 2", len(got))
	}
	if strings.Join(got[0], " ") != "get alpha" || strings.Join(got[1], " ") != "set alpha one" {
		t.Errorf("executed %v", got)
	}
	if !strings.Contains(out.String(), "done") {
		t.Errorf("output %q should contain executor output", out.String())
	}
}

func TestRunSkipsEmptyLines(t *testing.T) {
	calls := 0
	r, _ := newTestREPL(t, "\n   \nping\n", func([]string) (string, error) {
		calls++
		return "", nil
	})
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 {
		t.Errorf("executor called %d times, want 1", calls)
	}
}

func TestRunExitStopsLoop(t *testing.T) {
	r, _ := newTestREPL(t, "exit\nping\n", func([]string) (string, error) {
		t.Error("executor should not run after exit")
		return "", nil
	})
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunPrintsExecutorError(t *testing.T) {
	r, out := newTestREPL(t, "get missing\n", func([]string) (string, error) {
		return "", errAlwaysFails
	})
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Error: connection refused") {
		t.Errorf("output %q should contain the executor error", out.String())
	}
}

func TestRunHelp(t *testing.T) {
	r, out := newTestREPL(t, "help\n", func([]string) (string, error) {
		t.Error("help should not reach the executor")
		return "", nil
	})
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, cmd := range []string{"get", "set", "info", "exit"} {
		if !strings.Contains(out.String(), cmd) {
			t.Errorf("help output should list %q", cmd)
		}
	}
}

var errAlwaysFails = &replError{"connection refused"}

type replError struct{ msg string }

func (e *replError) Error() string { return e.msg }
