package respserver

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redikv/redikv-go/internal/store"
)

func startTestServer(t *testing.T, mutate func(*Config)) (*Server, string) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	if mutate != nil {
		mutate(cfg)
	}

	srv := New(cfg, NewDispatcher(store.New()), nil, nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, srv.Addr().String()
}

func dialTest(t *testing.T, addr string) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	return c
}

func readN(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("read %d bytes: %v", n, err)
	}
	return buf
}

func TestServerEndToEnd(t *testing.T) {
	_, addr := startTestServer(t, nil)
	c := dialTest(t, addr)

	steps := []struct {
		send string
		want string
	}{
		{"*3\r\n$3\r\nSET\r\n$8\r\ngreeting\r\n$11\r\nhello world\r\n", "+OK\r\n"},
		{"*2\r\n$3\r\nGET\r\n$8\r\ngreeting\r\n", "$11\r\nhello world\r\n"},
		{"*2\r\n$3\r\nGET\r\n$7\r\nmissing\r\n", "$-1\r\n"},
	}
	for _, step := range steps {
		if _, err := c.Write([]byte(step.send)); err != nil {
			t.Fatalf("write: %v", err)
		}
		got := readN(t, c, len(step.want))
		if string(got) != step.want {
			t.Errorf("sent %q, got %q, want %q", step.send, got, step.want)
		}
	}
}

// A command split across arbitrary TCP writes must still decode.
func TestServerHandlesSplitWrites(t *testing.T) {
	_, addr := startTestServer(t, nil)
	c := dialTest(t, addr)

	full := "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n"
	for i := 0; i < len(full); i++ {
		if _, err := c.Write([]byte{full[i]}); err != nil {
			t.Fatalf("write byte %d: %v", i, err)
		}
	}
	if got := readN(t, c, 5); string(got) != "+OK\r\n" {
		t.Errorf("reply = %q, want +OK", got)
	}
}

// Two commands arriving in one TCP segment are both served.
func TestServerHandlesPipelinedCommands(t *testing.T) {
	_, addr := startTestServer(t, nil)
	c := dialTest(t, addr)

	batch := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"
	if _, err := c.Write([]byte(batch)); err != nil {
		t.Fatal(err)
	}
	want := "+OK\r\n$1\r\nv\r\n"
	if got := readN(t, c, len(want)); string(got) != want {
		t.Errorf("replies = %q, want %q", got, want)
	}
}

// An unknown command is an error reply, not a dropped connection.
func TestServerSessionSurvivesUnknownCommand(t *testing.T) {
	_, addr := startTestServer(t, nil)
	c := dialTest(t, addr)
	br := bufio.NewReader(c)

	if _, err := c.Write([]byte("*1\r\n$5\r\nHELLO\r\n")); err != nil {
		t.Fatal(err)
	}
	reply, err := ReadReply(br)
	if err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	if !reply.IsError() {
		t.Fatalf("reply = %+v, want error", reply)
	}

	if _, err := c.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
		t.Fatal(err)
	}
	reply, err = ReadReply(br)
	if err != nil {
		t.Fatalf("session should survive an unknown command: %v", err)
	}
	if reply.Str != "PONG" {
		t.Errorf("reply = %+v, want +PONG", reply)
	}
}

// Malformed framing aborts the session after a best-effort error reply.
func TestServerClosesOnProtocolError(t *testing.T) {
	_, addr := startTestServer(t, nil)
	c := dialTest(t, addr)
	br := bufio.NewReader(c)

	if _, err := c.Write([]byte("*-1\r\n")); err != nil {
		t.Fatal(err)
	}
	reply, err := ReadReply(br)
	if err != nil {
		t.Fatalf("expected an error reply before close: %v", err)
	}
	if !reply.IsError() {
		t.Errorf("reply = %+v, want error", reply)
	}

	// The connection should now be closed by the server.
	if _, err := br.ReadByte(); err != io.EOF {
		t.Errorf("read after protocol error = %v, want EOF", err)
	}
}

func TestServerQuitClosesConnection(t *testing.T) {
	_, addr := startTestServer(t, nil)
	c := dialTest(t, addr)
	br := bufio.NewReader(c)

	if _, err := c.Write([]byte("*1\r\n$4\r\nQUIT\r\n")); err != nil {
		t.Fatal(err)
	}
	reply, err := ReadReply(br)
	if err != nil || reply.Str != "OK" {
		t.Fatalf("QUIT reply = %+v, %v; want +OK", reply, err)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		t.Errorf("read after QUIT = %v, want EOF", err)
	}
}

func TestServerInlineCommands(t *testing.T) {
	_, addr := startTestServer(t, nil)
	c := dialTest(t, addr)
	br := bufio.NewReader(c)

	if _, err := c.Write([]byte("SET inline yes\r\nGET inline\r\n")); err != nil {
		t.Fatal(err)
	}
	reply, err := ReadReply(br)
	if err != nil || reply.Str != "OK" {
		t.Fatalf("inline SET reply = %+v, %v", reply, err)
	}
	reply, err = ReadReply(br)
	if err != nil || string(reply.Bulk) != "yes" {
		t.Fatalf("inline GET reply = %+v, %v", reply, err)
	}
}

// Last write wins and is never torn, observed through real connections.
func TestServerConcurrentClients(t *testing.T) {
	_, addr := startTestServer(t, nil)

	const clients = 8
	const rounds = 50

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			c, err := net.DialTimeout("tcp", addr, time.Second)
			if err != nil {
				t.Errorf("client %d dial: %v", id, err)
				return
			}
			defer c.Close()
			_ = c.SetDeadline(time.Now().Add(10 * time.Second))
			br := bufio.NewReader(c)

			value := []byte{byte('a' + id)}
			for r := 0; r < rounds; r++ {
				cmd := AppendCommand(nil, []byte("SET"), []byte("shared"), value)
				if _, err := c.Write(cmd); err != nil {
					t.Errorf("client %d write: %v", id, err)
					return
				}
				reply, err := ReadReply(br)
				if err != nil || reply.Str != "OK" {
					t.Errorf("client %d SET reply = %+v, %v", id, reply, err)
					return
				}

				cmd = AppendCommand(nil, []byte("GET"), []byte("shared"))
				if _, err := c.Write(cmd); err != nil {
					t.Errorf("client %d write: %v", id, err)
					return
				}
				reply, err = ReadReply(br)
				if err != nil {
					t.Errorf("client %d GET: %v", id, err)
					return
				}
				// Any single client's byte is valid; a torn or empty value
				// is not.
				if len(reply.Bulk) != 1 || reply.Bulk[0] < 'a' || reply.Bulk[0] >= 'a'+clients {
					t.Errorf("client %d observed torn value %q", id, reply.Bulk)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestServerMaxConnections(t *testing.T) {
	_, addr := startTestServer(t, func(cfg *Config) {
		cfg.MaxConnections = 1
	})

	first := dialTest(t, addr)
	if _, err := first.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
		t.Fatal(err)
	}
	readN(t, first, len("+PONG\r\n"))

	second := dialTest(t, addr)
	reply, err := ReadReply(bufio.NewReader(second))
	if err != nil {
		t.Fatalf("second connection should get a refusal reply: %v", err)
	}
	if !reply.IsError() {
		t.Errorf("reply = %+v, want max clients error", reply)
	}
}

func TestServerRateLimit(t *testing.T) {
	_, addr := startTestServer(t, func(cfg *Config) {
		cfg.RateLimit = 1
	})

	c := dialTest(t, addr)
	br := bufio.NewReader(c)

	limited := false
	for i := 0; i < 10; i++ {
		if _, err := c.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
			t.Fatal(err)
		}
		reply, err := ReadReply(br)
		if err != nil {
			t.Fatalf("read reply %d: %v", i, err)
		}
		if reply.IsError() {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("10 rapid commands at 1 rps should trip the rate limit")
	}
}

func TestServerShutdownStopsAccepting(t *testing.T) {
	srv, addr := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Error("dial should fail after shutdown")
	}
}

func TestServerBindFailure(t *testing.T) {
	srv1, addr := startTestServer(t, nil)
	_ = srv1

	cfg := DefaultConfig()
	cfg.Addr = addr
	srv2 := New(cfg, NewDispatcher(store.New()), nil, nil)
	if err := srv2.Start(context.Background()); err == nil {
		t.Error("Start should fail when the address is taken")
		_ = srv2.Shutdown(context.Background())
	}
}
