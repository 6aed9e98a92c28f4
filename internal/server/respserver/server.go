package respserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/redikv/redikv-go/internal/telemetry/metric"
)

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// MaxConnections caps concurrently served connections. Connections past
	// the cap are refused with an error reply. Zero means no cap.
	MaxConnections int
	// ReadTimeout is the per-command read deadline once a frame has begun
	// arriving. Guards against slowloris peers.
	ReadTimeout time.Duration
	// WriteTimeout is the deadline for writing a reply.
	WriteTimeout time.Duration
	// IdleTimeout is the deadline for a connection sitting between commands.
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per client IP.
	// Zero disables rate limiting.
	RateLimit int
	// ReadBufferSize is the size of the per-connection read chunk.
	ReadBufferSize int
}

// DefaultConfig returns the default RESP server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           "127.0.0.1:6379",
		MaxConnections: 1000,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    5 * time.Minute,
		RateLimit:      0,
		ReadBufferSize: 4096,
	}
}

// Server accepts TCP connections and runs one session per connection
// against the single shared store, via the dispatcher.
type Server struct {
	cfg        *Config
	dispatcher *Dispatcher
	logger     *slog.Logger
	metrics    *metric.Registry

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup
	conns   atomic.Int64

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a new RESP server. logger and metrics may be nil.
func New(cfg *Config, dispatcher *Dispatcher, logger *slog.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Start binds the listen address and begins accepting connections.
// Bind failure (address in use, permission denied) is returned immediately
// and is fatal at startup; it is never retried.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	s.logger.Info("resp server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()
	return nil
}

// Addr returns the bound listen address, useful when Addr was ":0".
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections and waits for in-flight sessions,
// up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			firstErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.logger.Error("accept error", "error", err)
			continue
		}

		if s.cfg.MaxConnections > 0 && s.conns.Load() >= int64(s.cfg.MaxConnections) {
			_, _ = c.Write(AppendReply(nil, ErrorReply("ERR max number of clients reached")))
			_ = c.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(c)
		}()
	}
}

// serveConn owns one connection's lifecycle: Reading -> Dispatching ->
// Writing, back to Reading; Closed on disconnect or write failure; Aborted
// on an unrecoverable parse error (RESP cannot resynchronize mid-stream).
func (s *Server) serveConn(c net.Conn) {
	defer c.Close()

	s.conns.Add(1)
	defer s.conns.Add(-1)
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Inc()
		defer s.metrics.ConnectionsActive.Dec()
	}

	var limiter *rate.Limiter
	if s.cfg.RateLimit > 0 {
		limiter = s.limiterFor(remoteIP(c))
	}

	buf := make([]byte, 0, s.cfg.ReadBufferSize)
	chunk := make([]byte, s.cfg.ReadBufferSize)
	out := make([]byte, 0, 256)

	for {
		frame, consumed, err := Decode(buf)
		if errors.Is(err, ErrIncomplete) {
			// Mid-frame reads get the tighter per-command deadline; an
			// empty buffer means the connection is just idle.
			deadline := s.cfg.ReadTimeout
			if len(buf) == 0 {
				deadline = s.cfg.IdleTimeout
			}
			if deadline > 0 {
				if err := c.SetReadDeadline(time.Now().Add(deadline)); err != nil {
					return
				}
			}

			n, rerr := c.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if rerr != nil {
				if errors.Is(rerr, io.EOF) {
					return
				}
				var netErr net.Error
				if errors.As(rerr, &netErr) && netErr.Timeout() {
					s.logger.Debug("connection timed out", "remote", c.RemoteAddr())
					return
				}
				s.logger.Debug("connection read error", "remote", c.RemoteAddr(), "error", rerr)
				return
			}
			continue
		}
		if err != nil {
			// Framing is broken; send a best-effort error and abort.
			if errors.Is(err, ErrLimitExceeded) {
				s.logger.Warn("protocol limit exceeded", "remote", c.RemoteAddr(), "error", err)
			} else {
				s.logger.Debug("protocol error", "remote", c.RemoteAddr(), "error", err)
			}
			s.writeReply(c, &out, ErrorReply("ERR protocol error: %s", err.Error()))
			return
		}

		buf = append(buf[:0], buf[consumed:]...)

		if len(frame) == 0 {
			// Empty inline line; nothing to do.
			continue
		}

		name := NormalizeCommandName(frame[0])

		if limiter != nil && !limiter.Allow() {
			if !s.writeReply(c, &out, ErrorReply("ERR rate limit exceeded")) {
				return
			}
			continue
		}

		start := time.Now()
		reply := s.dispatcher.Dispatch(frame)
		s.observe(name, reply, time.Since(start))

		if !s.writeReply(c, &out, reply) {
			return
		}

		if name == "QUIT" {
			return
		}
	}
}

// writeReply encodes and writes one reply, reporting whether the
// connection is still usable.
func (s *Server) writeReply(c net.Conn, out *[]byte, r Reply) bool {
	*out = AppendReply((*out)[:0], r)
	if s.cfg.WriteTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return false
		}
	}
	if _, err := c.Write(*out); err != nil {
		s.logger.Debug("connection write error", "remote", c.RemoteAddr(), "error", err)
		return false
	}
	return true
}

func (s *Server) observe(name string, reply Reply, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	if !s.dispatcher.Known(name) {
		name = "UNKNOWN"
	}
	status := "ok"
	if reply.IsError() {
		status = "error"
	}
	s.metrics.CommandsTotal.WithLabelValues(name, status).Inc()
	s.metrics.CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()

	lim, ok := s.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateLimit)
		s.limiters[ip] = lim
	}
	return lim
}

func remoteIP(c net.Conn) string {
	addr := c.RemoteAddr().String()
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
