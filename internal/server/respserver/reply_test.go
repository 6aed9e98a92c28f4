package respserver

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestAppendReply(t *testing.T) {
	tests := []struct {
		name  string
		reply Reply
		want  string
	}{
		{"ok", OKReply(), "+OK\r\n"},
		{"simple", SimpleReply("PONG"), "+PONG\r\n"},
		{"error", ErrorReply("ERR unknown command '%s'", "NOPE"), "-ERR unknown command 'NOPE'\r\n"},
		{"integer", IntegerReply(42), ":42\r\n"},
		{"negative integer", IntegerReply(-7), ":-7\r\n"},
		{"bulk", BulkStringReply("hello world"), "$11\r\nhello world\r\n"},
		{"empty bulk", BulkReply([]byte{}), "$0\r\n\r\n"},
		{"nil bulk is present", BulkReply(nil), "$0\r\n\r\n"},
		{"binary bulk", BulkReply([]byte{0, '\r', '\n', 0xff}), "$4\r\n\x00\r\n\xff\r\n"},
		{"null", NullReply(), "$-1\r\n"},
		{"empty array", ArrayReply(), "*0\r\n"},
		{
			"nested array",
			ArrayReply(BulkStringReply("get"), IntegerReply(2)),
			"*2\r\n$3\r\nget\r\n:2\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AppendReply(nil, tt.reply); string(got) != tt.want {
				t.Errorf("AppendReply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppendReplyAppends(t *testing.T) {
	got := AppendReply([]byte("prefix"), OKReply())
	if string(got) != "prefix+OK\r\n" {
		t.Errorf("AppendReply should extend dst, got %q", got)
	}
}

func TestReadReplyRoundTrip(t *testing.T) {
	replies := []Reply{
		OKReply(),
		ErrorReply("ERR boom"),
		IntegerReply(123),
		BulkStringReply("payload"),
		NullReply(),
		ArrayReply(BulkStringReply("a"), ArrayReply(IntegerReply(1))),
	}

	var wire []byte
	for _, r := range replies {
		wire = AppendReply(wire, r)
	}

	br := bufio.NewReader(bytes.NewReader(wire))
	for i, want := range replies {
		got, err := ReadReply(br)
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		if !replyEqual(got, want) {
			t.Errorf("reply %d = %+v, want %+v", i, got, want)
		}
	}
}

func replyEqual(a, b Reply) bool {
	if a.Kind != b.Kind || a.Str != b.Str || a.Int != b.Int {
		return false
	}
	if !bytes.Equal(a.Bulk, b.Bulk) {
		return false
	}
	if len(a.Elems) != len(b.Elems) {
		return false
	}
	for i := range a.Elems {
		if !replyEqual(a.Elems[i], b.Elems[i]) {
			return false
		}
	}
	return true
}

func TestReadReplyErrors(t *testing.T) {
	tests := []struct {
		name string
		wire string
	}{
		{"unknown prefix", "?what\r\n"},
		{"bad integer", ":abc\r\n"},
		{"bad bulk length", "$x\r\n"},
		{"bulk missing CRLF", "$3\r\nabcXX"},
		{"missing CRLF on line", "+OK\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReply(bufio.NewReader(bytes.NewReader([]byte(tt.wire))))
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("err = %v, want ErrProtocol", err)
			}
		})
	}
}

func TestIsError(t *testing.T) {
	if OKReply().IsError() {
		t.Error("+OK should not be an error")
	}
	if !ErrorReply("ERR x").IsError() {
		t.Error("error reply should report IsError")
	}
}
