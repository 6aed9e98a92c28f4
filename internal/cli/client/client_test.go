package client

import (
	"context"
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

func TestDialFailure(t *testing.T) {
	if _, err := Dial("127.0.0.1:1", 100*time.Millisecond); err == nil {
		t.Fatal("Dial should fail against a closed port")
	}
}

func TestDoSetGet(t *testing.T) {
	addr := startServer(t)
	c, err := Dial(addr, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.DoStrings("SET", "greeting", "hello world")
	if err != nil {
		t.Fatalf("SET: %v", err)
	}
	if reply.Kind != respserver.ReplySimple || reply.Str != "OK" {
		t.Errorf("SET reply = %+v, want +OK", reply)
	}

	reply, err = c.DoStrings("GET", "greeting")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if reply.Kind != respserver.ReplyBulk || string(reply.Bulk) != "hello world" {
		t.Errorf("GET reply = %+v, want bulk \"hello world\"", reply)
	}

	reply, err = c.DoStrings("GET", "missing")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	if reply.Kind != respserver.ReplyNull {
		t.Errorf("GET missing reply = %+v, want null", reply)
	}
}

func TestDoServerErrorIsReply(t *testing.T) {
	addr := startServer(t)
	c, err := Dial(addr, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.DoStrings("NOSUCH")
	if err != nil {
		t.Fatalf("Do should not fail on an error reply: %v", err)
	}
	if !reply.IsError() {
		t.Errorf("reply = %+v, want error reply", reply)
	}
}

func TestDoEmptyCommand(t *testing.T) {
	addr := startServer(t)
	c, err := Dial(addr, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Do(); err == nil {
		t.Error("Do with no arguments should fail locally")
	}
}

func TestFormatReply(t *testing.T) {
	tests := []struct {
		name  string
		reply respserver.Reply
		want  string
	}{
		{"simple", respserver.SimpleReply("OK"), "OK"},
		{"error", respserver.ErrorReply("ERR boom"), "(error) ERR boom"},
		{"integer", respserver.IntegerReply(42), "(integer) 42"},
		{"bulk", respserver.BulkStringReply("hi"), `"hi"`},
		{"null", respserver.NullReply(), "(nil)"},
		{"empty array", respserver.ArrayReply(), "(empty array)"},
		{
			"array",
			respserver.ArrayReply(respserver.BulkStringReply("get"), respserver.IntegerReply(2)),
			"1) get\n2) (integer) 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatReply(tt.reply); got != tt.want {
				t.Errorf("FormatReply = %q, want %q", got, tt.want)
			}
		})
	}
}
