package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redikv/redikv-go/internal/server/respserver"
	"github.com/redikv/redikv-go/internal/store"
)

func startServer(t *testing.T) string {
	t.Helper()

	cfg := respserver.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := respserver.New(cfg, respserver.NewDispatcher(store.New()), nil, nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv.Addr().String()
}

func runApp(t *testing.T, addr string, args ...string) string {
	t.Helper()
	app := App()
	var out strings.Builder
	app.Writer = &out

	argv := append([]string{"redikv-cli", "--server", addr}, args...)
	if err := app.Run(argv); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return out.String()
}

func TestAppHasExpectedCommands(t *testing.T) {
	app := App()
	want := []string{"get", "set", "info", "memory", "save", "ping"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestSetThenGet(t *testing.T) {
	addr := startServer(t)

	out := runApp(t, addr, "set", "greeting", "hello")
	if !strings.Contains(out, "OK") {
		t.Errorf("set output = %q, want OK", out)
	}

	out = runApp(t, addr, "get", "greeting")
	if !strings.Contains(out, "hello") {
		t.Errorf("get output = %q, want the stored value", out)
	}
}

func TestGetMissingPrintsNil(t *testing.T) {
	addr := startServer(t)
	out := runApp(t, addr, "get", "absent")
	if !strings.Contains(out, "(nil)") {
		t.Errorf("output = %q, want (nil)", out)
	}
}

func TestPing(t *testing.T) {
	addr := startServer(t)
	out := runApp(t, addr, "ping")
	if !strings.Contains(out, "PONG") {
		t.Errorf("output = %q, want PONG", out)
	}
}

func TestInfoPrintsSections(t *testing.T) {
	addr := startServer(t)
	out := runApp(t, addr, "info")
	if !strings.Contains(out, "# Server") || !strings.Contains(out, "# Memory") {
		t.Errorf("info output = %q, want Server and Memory sections", out)
	}
}

func TestGetArgValidation(t *testing.T) {
	app := App()
	app.Writer = &strings.Builder{}
	err := app.Run([]string{"redikv-cli", "get"})
	if err == nil {
		t.Error("get without a key should fail")
	}
}
