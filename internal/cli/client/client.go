package client

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/redikv/redikv-go/internal/server/respserver"
)

// DefaultTimeout bounds dialing and each request round trip.
const DefaultTimeout = 5 * time.Second

// Client is a RESP client over a single TCP connection.
type Client struct {
	conn    net.Conn
	br      *bufio.Reader
	timeout time.Duration
	wbuf    []byte
}

// Dial connects to a redikv server. A zero timeout means DefaultTimeout.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		br:      bufio.NewReader(conn),
		timeout: timeout,
	}, nil
}

// Do sends one command and returns its reply. Error replies from the
// server come back as a Reply with IsError() true, not as a Go error;
// the error return covers transport and protocol failures only.
func (c *Client) Do(args ...[]byte) (respserver.Reply, error) {
	if len(args) == 0 {
		return respserver.Reply{}, fmt.Errorf("empty command")
	}

	deadline := time.Now().Add(c.timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return respserver.Reply{}, err
	}

	c.wbuf = respserver.AppendCommand(c.wbuf[:0], args...)
	if _, err := c.conn.Write(c.wbuf); err != nil {
		return respserver.Reply{}, fmt.Errorf("send command: %w", err)
	}

	reply, err := respserver.ReadReply(c.br)
	if err != nil {
		return respserver.Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}

// DoStrings is Do with string arguments.
func (c *Client) DoStrings(args ...string) (respserver.Reply, error) {
	bs := make([][]byte, len(args))
	for i, a := range args {
		bs[i] = []byte(a)
	}
	return c.Do(bs...)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// FormatReply renders a reply the way redis-cli does, for terminal output.
func FormatReply(r respserver.Reply) string {
	return formatReply(r, 0)
}

func formatReply(r respserver.Reply, depth int) string {
	switch r.Kind {
	case respserver.ReplySimple:
		return r.Str
	case respserver.ReplyError:
		return "(error) " + r.Str
	case respserver.ReplyInteger:
		return fmt.Sprintf("(integer) %d", r.Int)
	case respserver.ReplyBulk:
		if depth > 0 {
			return string(r.Bulk)
		}
		return fmt.Sprintf("%q", r.Bulk)
	case respserver.ReplyNull:
		return "(nil)"
	case respserver.ReplyArray:
		if len(r.Elems) == 0 {
			return "(empty array)"
		}
		out := ""
		for i, e := range r.Elems {
			if i > 0 {
				out += "\n"
			}
			out += fmt.Sprintf("%d) %s", i+1, formatReply(e, depth+1))
		}
		return out
	default:
		return fmt.Sprintf("(unknown reply kind %d)", r.Kind)
	}
}
