package respserver

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// ReplyKind tags the variants a command handler can produce.
type ReplyKind int

const (
	ReplySimple ReplyKind = iota
	ReplyError
	ReplyInteger
	ReplyBulk
	ReplyNull
	ReplyArray
)

// Reply is a typed command result. It is transient: handlers build one,
// the session encodes it, and it is discarded.
type Reply struct {
	Kind  ReplyKind
	Str   string  // ReplySimple, ReplyError
	Int   int64   // ReplyInteger
	Bulk  []byte  // ReplyBulk
	Elems []Reply // ReplyArray
}

// SimpleReply builds a "+<s>\r\n" status reply.
func SimpleReply(s string) Reply {
	return Reply{Kind: ReplySimple, Str: s}
}

// OKReply is the canonical success status.
func OKReply() Reply {
	return SimpleReply("OK")
}

// ErrorReply builds a "-<msg>\r\n" error reply.
func ErrorReply(format string, args ...any) Reply {
	if len(args) == 0 {
		return Reply{Kind: ReplyError, Str: format}
	}
	return Reply{Kind: ReplyError, Str: fmt.Sprintf(format, args...)}
}

// IntegerReply builds a ":<n>\r\n" reply.
func IntegerReply(n int64) Reply {
	return Reply{Kind: ReplyInteger, Int: n}
}

// BulkReply builds a "$<len>\r\n<bytes>\r\n" reply. A nil slice is still a
// present (empty) bulk string; use NullReply for absence.
func BulkReply(b []byte) Reply {
	return Reply{Kind: ReplyBulk, Bulk: b}
}

// BulkStringReply is BulkReply for string payloads.
func BulkStringReply(s string) Reply {
	return Reply{Kind: ReplyBulk, Bulk: []byte(s)}
}

// NullReply builds the null bulk "$-1\r\n".
func NullReply() Reply {
	return Reply{Kind: ReplyNull}
}

// ArrayReply builds a "*<n>\r\n" reply from its elements.
func ArrayReply(elems ...Reply) Reply {
	return Reply{Kind: ReplyArray, Elems: elems}
}

// IsError reports whether the reply is an error reply.
func (r Reply) IsError() bool {
	return r.Kind == ReplyError
}

// AppendReply appends the wire encoding of r to dst and returns the
// extended slice. Encoding is total: every Reply variant maps to exactly
// one well-formed byte sequence, and payload bytes pass through verbatim.
func AppendReply(dst []byte, r Reply) []byte {
	switch r.Kind {
	case ReplySimple:
		dst = append(dst, '+')
		dst = append(dst, r.Str...)
		dst = append(dst, crlf...)
	case ReplyError:
		dst = append(dst, '-')
		dst = append(dst, r.Str...)
		dst = append(dst, crlf...)
	case ReplyInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, r.Int, 10)
		dst = append(dst, crlf...)
	case ReplyBulk:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(r.Bulk)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, r.Bulk...)
		dst = append(dst, crlf...)
	case ReplyNull:
		dst = append(dst, "$-1\r\n"...)
	case ReplyArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(r.Elems)), 10)
		dst = append(dst, crlf...)
		for _, e := range r.Elems {
			dst = AppendReply(dst, e)
		}
	}
	return dst
}

// ReadReply parses one reply from a stream. It is the client-side half of
// the codec, used by redikv-cli and by tests.
func ReadReply(br *bufio.Reader) (Reply, error) {
	line, err := readReplyLine(br)
	if err != nil {
		return Reply{}, err
	}
	if len(line) == 0 {
		return Reply{}, fmt.Errorf("%w: empty reply line", ErrProtocol)
	}

	switch line[0] {
	case '+':
		return SimpleReply(string(line[1:])), nil
	case '-':
		return ErrorReply("%s", string(line[1:])), nil
	case ':':
		n, err := strconv.ParseInt(string(line[1:]), 10, 64)
		if err != nil {
			return Reply{}, fmt.Errorf("%w: invalid integer reply", ErrProtocol)
		}
		return IntegerReply(n), nil
	case '$':
		n, err := strconv.Atoi(string(line[1:]))
		if err != nil {
			return Reply{}, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
		}
		if n == -1 {
			return NullReply(), nil
		}
		if n < 0 || n > MaxBulkLen {
			return Reply{}, fmt.Errorf("%w: bulk length %d out of range", ErrProtocol, n)
		}
		body := make([]byte, n+2)
		if _, err := io.ReadFull(br, body); err != nil {
			return Reply{}, err
		}
		if body[n] != '\r' || body[n+1] != '\n' {
			return Reply{}, fmt.Errorf("%w: bulk reply not terminated by CRLF", ErrProtocol)
		}
		return BulkReply(body[:n]), nil
	case '*':
		n, err := strconv.Atoi(string(line[1:]))
		if err != nil || n < 0 || n > MaxArrayLen {
			return Reply{}, fmt.Errorf("%w: invalid array length", ErrProtocol)
		}
		elems := make([]Reply, 0, n)
		for i := 0; i < n; i++ {
			e, err := ReadReply(br)
			if err != nil {
				return Reply{}, err
			}
			elems = append(elems, e)
		}
		return ArrayReply(elems...), nil
	default:
		return Reply{}, fmt.Errorf("%w: unknown reply prefix %q", ErrProtocol, line[0])
	}
}

func readReplyLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return line[:len(line)-2], nil
}
