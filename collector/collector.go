// Package collector receives the newline-delimited records that slogger network
// sinks send and writes them, one complete line at a time, to an output writer.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/panjf2000/gnet/v2/pkg/logging"
)

// ErrNotRunning is returned by Stop before the engine has booted
var ErrNotRunning = errors.New("collector: not running")

// Options configures a Server
type Options struct {
	Addr      string         // gnet protocol address, e.g. "tcp://127.0.0.1:9514"
	Out       io.Writer      // receives complete lines
	Multicore bool           // one event loop per CPU
	MaxLine   int            // longest buffered partial line, 0 means DefaultMaxLine
	Logger    logging.Logger // engine diagnostics, nil keeps gnet's default
}

// DefaultMaxLine bounds the bytes held for a connection without a newline
const DefaultMaxLine = 64 * 1024

// Stats is a snapshot of receiver counters
type Stats struct {
	Connections int64  `json:"connections"` // currently open
	Accepted    uint64 `json:"accepted"`
	Lines       uint64 `json:"lines"`
	Bytes       uint64 `json:"bytes"`
	Split       uint64 `json:"split"` // lines cut at MaxLine
	Uptime      string `json:"uptime"`
}

// Server is a gnet event handler that reassembles lines per connection
type Server struct {
	gnet.BuiltinEventEngine

	opts Options

	eng    gnet.Engine
	booted chan struct{}
	bootMu sync.Mutex
	start  time.Time

	outMu sync.Mutex // event loops write concurrently with Multicore

	active   atomic.Int64
	accepted atomic.Uint64
	lines    atomic.Uint64
	bytes    atomic.Uint64
	split    atomic.Uint64
}

// conn holds the unterminated tail of a connection's stream
type conn struct {
	pending []byte
}

// New validates opts and returns a Server ready to Run
func New(opts Options) (*Server, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("collector: address cannot be empty")
	}
	if opts.Out == nil {
		return nil, fmt.Errorf("collector: output writer cannot be nil")
	}
	if opts.MaxLine <= 0 {
		opts.MaxLine = DefaultMaxLine
	}
	return &Server{opts: opts, booted: make(chan struct{})}, nil
}

// Run starts the engine and blocks until Stop is called or the engine fails
func (s *Server) Run() error {
	gopts := []gnet.Option{
		gnet.WithMulticore(s.opts.Multicore),
		gnet.WithTCPKeepAlive(time.Minute),
	}
	if s.opts.Logger != nil {
		gopts = append(gopts, gnet.WithLogger(s.opts.Logger))
	}
	return gnet.Run(s, s.opts.Addr, gopts...)
}

// Ready is closed once the engine accepts connections
func (s *Server) Ready() <-chan struct{} {
	return s.booted
}

// Stop shuts the engine down, closing every open connection
func (s *Server) Stop(ctx context.Context) error {
	select {
	case <-s.booted:
	default:
		return ErrNotRunning
	}
	s.bootMu.Lock()
	eng := s.eng
	s.bootMu.Unlock()
	return eng.Stop(ctx)
}

// Stats returns current counters
func (s *Server) Stats() Stats {
	st := Stats{
		Connections: s.active.Load(),
		Accepted:    s.accepted.Load(),
		Lines:       s.lines.Load(),
		Bytes:       s.bytes.Load(),
		Split:       s.split.Load(),
	}
	s.bootMu.Lock()
	if !s.start.IsZero() {
		st.Uptime = time.Since(s.start).Round(time.Second).String()
	}
	s.bootMu.Unlock()
	return st
}

func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.bootMu.Lock()
	s.eng = eng
	s.start = time.Now()
	s.bootMu.Unlock()
	close(s.booted)
	return gnet.None
}

func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	c.SetContext(&conn{})
	s.active.Add(1)
	s.accepted.Add(1)
	return nil, gnet.None
}

func (s *Server) OnClose(c gnet.Conn, _ error) gnet.Action {
	s.active.Add(-1)
	if st, ok := c.Context().(*conn); ok && len(st.pending) > 0 {
		// Sender went away mid-line
		s.emit(append(st.pending, '\n'), 1)
		st.pending = nil
	}
	return gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	buf, err := c.Next(-1)
	if err != nil {
		return gnet.Close
	}
	st, _ := c.Context().(*conn)
	if st == nil {
		st = &conn{}
		c.SetContext(st)
	}

	// buf is only valid until the next read, so whatever stays pending is copied
	last := bytes.LastIndexByte(buf, '\n')
	if last < 0 {
		st.hold(s, buf)
		return gnet.None
	}

	complete := buf[:last+1]
	n := bytes.Count(complete, []byte{'\n'})
	if len(st.pending) > 0 {
		st.pending = append(st.pending, complete...)
		s.emit(st.pending, n)
		st.pending = st.pending[:0]
	} else {
		s.emit(complete, n)
	}

	if rest := buf[last+1:]; len(rest) > 0 {
		st.hold(s, rest)
	}
	return gnet.None
}

// hold keeps b as the partial line; anything reaching MaxLine is emitted as its own line
func (st *conn) hold(s *Server, b []byte) {
	st.pending = append(st.pending, b...)
	for len(st.pending) >= s.opts.MaxLine {
		s.split.Add(1)
		line := make([]byte, 0, s.opts.MaxLine+1)
		line = append(append(line, st.pending[:s.opts.MaxLine]...), '\n')
		s.emit(line, 1)
		st.pending = append(st.pending[:0], st.pending[s.opts.MaxLine:]...)
	}
}

func (s *Server) emit(b []byte, lines int) {
	s.outMu.Lock()
	_, _ = s.opts.Out.Write(b)
	s.outMu.Unlock()
	s.lines.Add(uint64(lines))
	s.bytes.Add(uint64(len(b)))
}
