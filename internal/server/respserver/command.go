package respserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redikv/redikv-go/internal/infra/buildinfo"
	"github.com/redikv/redikv-go/internal/store"
)

// Persister is the collaborator behind the SAVE command. The dispatcher
// does not define a durability contract; it only triggers the collaborator
// and relays failure.
type Persister interface {
	Save() error
}

// commandSpec declares one command: its arity and its handler.
//
// Arity follows the Redis convention: a positive value is the exact number
// of frame elements including the command name; a negative value -N means
// at least N elements.
type commandSpec struct {
	name    string
	arity   int
	handler func(d *Dispatcher, args Frame) Reply
}

// Dispatcher maps decoded frames onto store operations.
//
// It is safe for concurrent use: all mutable state lives in the store,
// which carries its own synchronization. Dispatch never panics on input
// reachable from a network peer; every failure path yields an error reply.
type Dispatcher struct {
	st      *store.Store
	persist Persister

	runID     string
	addr      string
	startedAt time.Time

	table map[string]*commandSpec
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPersister wires the SAVE collaborator. Without it SAVE reports that
// persistence is disabled.
func WithPersister(p Persister) DispatcherOption {
	return func(d *Dispatcher) {
		d.persist = p
	}
}

// WithRunID sets the per-process run id reported by INFO.
func WithRunID(id string) DispatcherOption {
	return func(d *Dispatcher) {
		d.runID = id
	}
}

// WithListenAddr sets the listen address reported by INFO.
func WithListenAddr(addr string) DispatcherOption {
	return func(d *Dispatcher) {
		d.addr = addr
	}
}

// NewDispatcher creates a dispatcher bound to the shared store.
func NewDispatcher(st *store.Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		st:        st,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.table = make(map[string]*commandSpec)
	for _, spec := range []*commandSpec{
		{name: "SET", arity: 3, handler: (*Dispatcher).cmdSet},
		{name: "GET", arity: 2, handler: (*Dispatcher).cmdGet},
		{name: "INFO", arity: -1, handler: (*Dispatcher).cmdInfo},
		{name: "COMMAND", arity: -1, handler: (*Dispatcher).cmdCommand},
		{name: "MEMORY", arity: 1, handler: (*Dispatcher).cmdMemory},
		{name: "SAVE", arity: 1, handler: (*Dispatcher).cmdSave},
		{name: "PING", arity: -1, handler: (*Dispatcher).cmdPing},
		{name: "QUIT", arity: 1, handler: (*Dispatcher).cmdQuit},
	} {
		d.table[spec.name] = spec
	}
	return d
}

// Dispatch executes one frame against the store and returns the typed
// result. An empty frame is rejected here, not in the codec: the codec and
// dispatcher keep separate failure domains.
func (d *Dispatcher) Dispatch(frame Frame) Reply {
	if len(frame) == 0 {
		return ErrorReply("ERR empty command")
	}

	name := NormalizeCommandName(frame[0])
	spec, ok := d.table[name]
	if !ok {
		return ErrorReply("ERR unknown command '%s'", name)
	}

	if !arityOK(spec.arity, len(frame)) {
		return ErrorReply("ERR wrong number of arguments for '%s' command", name)
	}

	return spec.handler(d, frame)
}

// Known reports whether name (any case) is a supported command.
func (d *Dispatcher) Known(name string) bool {
	_, ok := d.table[strings.ToUpper(name)]
	return ok
}

// CommandNames returns the supported command names, sorted.
func (d *Dispatcher) CommandNames() []string {
	names := make([]string, 0, len(d.table))
	for name := range d.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func arityOK(arity, got int) bool {
	if arity < 0 {
		return got >= -arity
	}
	return got == arity
}

// SET key value
func (d *Dispatcher) cmdSet(frame Frame) Reply {
	if err := d.st.Set(string(frame[1]), frame[2]); err != nil {
		if errors.Is(err, store.ErrMaxMemory) {
			return ErrorReply("ERR max memory limit exceeded")
		}
		return ErrorReply("ERR %s", err.Error())
	}
	return OKReply()
}

// GET key
func (d *Dispatcher) cmdGet(frame Frame) Reply {
	val, ok := d.st.Get(string(frame[1]))
	if !ok {
		return NullReply()
	}
	return BulkReply(val)
}

// INFO [section]
//
// The body is informational metadata, not part of any contract; the only
// guarantee is that INFO has no side effects.
func (d *Dispatcher) cmdInfo(Frame) Reply {
	var b strings.Builder

	fmt.Fprintf(&b, "# Server\r\n")
	fmt.Fprintf(&b, "redikv_version:%s\r\n", buildinfo.Version)
	fmt.Fprintf(&b, "redis_version:7.0.0\r\n")
	fmt.Fprintf(&b, "run_id:%s\r\n", d.runID)
	if d.addr != "" {
		fmt.Fprintf(&b, "listen_addr:%s\r\n", d.addr)
	}
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(time.Since(d.startedAt).Seconds()))
	fmt.Fprintf(&b, "\r\n# Memory\r\n")
	fmt.Fprintf(&b, "used_memory:%d\r\n", d.st.UsedMemory())
	fmt.Fprintf(&b, "maxmemory:%d\r\n", d.st.MaxMemory())
	fmt.Fprintf(&b, "keys:%d\r\n", d.st.Len())
	fmt.Fprintf(&b, "persistence_enabled:%d\r\n", boolInt(d.persist != nil))

	return BulkStringReply(b.String())
}

// COMMAND [subcommand ...]
//
// Enumerates the supported commands and arities. Subcommands (DOCS, INFO)
// that real clients send on connect get the same minimal listing.
func (d *Dispatcher) cmdCommand(Frame) Reply {
	names := d.CommandNames()
	elems := make([]Reply, 0, len(names))
	for _, name := range names {
		spec := d.table[name]
		elems = append(elems, ArrayReply(
			BulkStringReply(strings.ToLower(name)),
			IntegerReply(int64(spec.arity)),
		))
	}
	return ArrayReply(elems...)
}

// MEMORY
func (d *Dispatcher) cmdMemory(Frame) Reply {
	return IntegerReply(d.st.UsedMemory())
}

// SAVE
func (d *Dispatcher) cmdSave(Frame) Reply {
	if d.persist == nil {
		return ErrorReply("ERR saving to disk: persistence disabled")
	}
	if err := d.persist.Save(); err != nil {
		return ErrorReply("ERR saving to disk: %s", err.Error())
	}
	return OKReply()
}

// PING [message]
func (d *Dispatcher) cmdPing(frame Frame) Reply {
	switch len(frame) {
	case 1:
		return SimpleReply("PONG")
	case 2:
		return BulkReply(frame[1])
	default:
		return ErrorReply("ERR wrong number of arguments for 'PING' command")
	}
}

// QUIT
//
// The dispatcher just acknowledges; closing the connection is the
// session's job (see serveConn).
func (d *Dispatcher) cmdQuit(Frame) Reply {
	return OKReply()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
