package respserver

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Protocol limits to prevent a misbehaving peer from forcing unbounded
// allocations.
const (
	// MaxArrayLen limits the number of elements in a request frame.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512KB).
	MaxBulkLen = 512 * 1024

	// MaxInlineLen limits inline command line length (4KB).
	MaxInlineLen = 4 * 1024

	// maxHeaderLen bounds "*<n>\r\n" and "$<n>\r\n" header lines.
	maxHeaderLen = 64
)

var (
	// ErrIncomplete signals that the buffer does not yet contain a complete
	// frame. It is a continuation signal, not a failure: the caller appends
	// more bytes and calls Decode again.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrProtocol signals malformed wire input. RESP framing is not
	// self-resynchronizing, so a session that sees this error must close.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded signals input past one of the protocol limits above.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

var crlf = []byte("\r\n")

// Frame is one decoded client request: the command name followed by its
// arguments, each a binary-safe byte string. A zero-length Frame decodes
// successfully; rejecting it is the dispatcher's business, not the codec's.
type Frame [][]byte

// Decode parses one frame from the front of buf.
//
// buf is an append-only accumulation buffer; Decode is pure over it and may
// be called again with a longer prefix of the same stream. It returns the
// decoded frame and the number of bytes it occupied. When buf does not yet
// hold a complete frame it returns ErrIncomplete with zero consumed bytes.
// Malformed framing yields an error wrapping ErrProtocol or
// ErrLimitExceeded, also with zero consumed bytes.
//
// Element bytes are copied out of buf, so the caller is free to discard or
// compact consumed input.
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrIncomplete
	}
	if buf[0] == '*' {
		return decodeArray(buf)
	}
	return decodeInline(buf)
}

// decodeArray parses "*<n>\r\n" followed by n bulk strings.
func decodeArray(buf []byte) (Frame, int, error) {
	line, pos, err := cutLine(buf, maxHeaderLen)
	if err != nil {
		return nil, 0, err
	}

	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid array length", ErrProtocol)
	}
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: negative array length %d", ErrProtocol, n)
	}
	if n > MaxArrayLen {
		return nil, 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	frame := make(Frame, 0, n)
	for i := 0; i < n; i++ {
		arg, consumed, err := decodeBulk(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		frame = append(frame, arg)
		pos += consumed
	}
	return frame, pos, nil
}

// decodeBulk parses "$<len>\r\n<bytes>\r\n" and returns a copy of the bytes.
func decodeBulk(buf []byte) ([]byte, int, error) {
	line, pos, err := cutLine(buf, maxHeaderLen)
	if err != nil {
		return nil, 0, err
	}
	if line[0] != '$' {
		return nil, 0, fmt.Errorf("%w: expected bulk string, got %q", ErrProtocol, line[0])
	}

	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: negative bulk length %d", ErrProtocol, n)
	}
	if n > MaxBulkLen {
		return nil, 0, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	if len(buf[pos:]) < n+2 {
		return nil, 0, ErrIncomplete
	}
	body := buf[pos : pos+n]
	if !bytes.Equal(buf[pos+n:pos+n+2], crlf) {
		return nil, 0, fmt.Errorf("%w: bulk string not terminated by CRLF", ErrProtocol)
	}

	out := make([]byte, n)
	copy(out, body)
	return out, pos + n + 2, nil
}

// decodeInline parses a bare "CMD arg arg\r\n" line. Inline commands are
// rare but hand-typed telnet sessions and a few clients use them.
func decodeInline(buf []byte) (Frame, int, error) {
	line, pos, err := cutLine(buf, MaxInlineLen)
	if err != nil {
		return nil, 0, err
	}

	fields := strings.Fields(string(line))
	frame := make(Frame, 0, len(fields))
	for _, f := range fields {
		frame = append(frame, []byte(f))
	}
	return frame, pos, nil
}

// cutLine locates the first CRLF-terminated line in buf, returning the line
// without its terminator and the number of bytes up to and including it.
// A missing terminator is ErrIncomplete unless the line already exceeds
// maxLen, which is a limit violation.
func cutLine(buf []byte, maxLen int) ([]byte, int, error) {
	idx := bytes.Index(buf, crlf)
	if idx < 0 {
		if len(buf) > maxLen {
			return nil, 0, fmt.Errorf("%w: line exceeds %d bytes", ErrLimitExceeded, maxLen)
		}
		return nil, 0, ErrIncomplete
	}
	if idx > maxLen {
		return nil, 0, fmt.Errorf("%w: line exceeds %d bytes", ErrLimitExceeded, maxLen)
	}
	// A bare LF before the CRLF means the peer terminated a line with LF
	// only; RESP requires CRLF.
	if i := bytes.IndexByte(buf[:idx], '\n'); i >= 0 {
		return nil, 0, fmt.Errorf("%w: bare LF in line", ErrProtocol)
	}
	return buf[:idx], idx + 2, nil
}

// AppendCommand appends the RESP array-of-bulk-strings encoding of a
// request to dst and returns the extended slice. Clients use this to frame
// outgoing commands; the server never calls it.
func AppendCommand(dst []byte, args ...[]byte) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, crlf...)
	for _, arg := range args {
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, arg...)
		dst = append(dst, crlf...)
	}
	return dst
}

// NormalizeCommandName upper-cases an ASCII command name, avoiding an
// allocation when the name is already upper case.
func NormalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}
