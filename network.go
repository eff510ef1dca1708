package slogger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/lixenwraith/slogger/formatter"
)

// ErrNoEndpoint is returned when no resolved address accepts a connection
var ErrNoEndpoint = errors.New("slogger: no reachable network endpoint")

// maxSendReconnects bounds reconnect walks within one send
const maxSendReconnects = 2

// DialFunc opens a stream connection, matching net.Dialer.DialContext
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ResolveFunc returns the addresses of host, matching net.Resolver.LookupHost
type ResolveFunc func(ctx context.Context, host string) ([]string, error)

// NetworkOptions configures a NetworkSink
type NetworkOptions struct {
	Host    string
	Port    int
	Level   Level         // records below this level are skipped
	Timeout time.Duration // per dial and per write

	Formatter *formatter.Formatter
	Dial      DialFunc    // defaults to net.Dialer
	Resolve   ResolveFunc // defaults to net.DefaultResolver
	Warn      func(format string, args ...any)
}

// NetworkSink streams lines over TCP, reconnecting through the resolved address list on reset
type NetworkSink struct {
	opts  NetworkOptions
	addrs []string
	conn  net.Conn
}

// NewNetworkSink resolves the host once, keeps every returned address and
// connects to the first that accepts
func NewNetworkSink(opts NetworkOptions) (*NetworkSink, error) {
	if opts.Host == "" {
		return nil, fmtErrorf("network sink requires a host")
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return nil, fmtErrorf("network port out of range: %d", opts.Port)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Formatter == nil {
		opts.Formatter = formatter.New()
	}
	if opts.Dial == nil {
		d := &net.Dialer{}
		opts.Dial = d.DialContext
	}
	if opts.Resolve == nil {
		opts.Resolve = net.DefaultResolver.LookupHost
	}
	if opts.Warn == nil {
		opts.Warn = func(string, ...any) {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	hosts, err := opts.Resolve(ctx, opts.Host)
	cancel()
	if err != nil {
		return nil, fmtErrorf("failed to resolve '%s': %w", opts.Host, err)
	}
	if len(hosts) == 0 {
		return nil, fmtErrorf("no addresses for '%s'", opts.Host)
	}

	s := &NetworkSink{opts: opts}
	port := strconv.Itoa(opts.Port)
	for _, h := range hosts {
		s.addrs = append(s.addrs, net.JoinHostPort(h, port))
	}

	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name implements Sink
func (s *NetworkSink) Name() string { return sinkNetwork }

// Addresses returns the resolved endpoint list in dial order
func (s *NetworkSink) Addresses() []string {
	return append([]string(nil), s.addrs...)
}

// connect dials each resolved address in order until one succeeds
func (s *NetworkSink) connect() error {
	var lastErr error
	for _, addr := range s.addrs {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
		conn, err := s.opts.Dial(ctx, "tcp", addr)
		cancel()
		if err == nil {
			s.conn = conn
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %s:%d: %v", ErrNoEndpoint, s.opts.Host, s.opts.Port, lastErr)
}

// Forward sends one line if the record meets the sink level
func (s *NetworkSink) Forward(rec *Record) error {
	if rec.Level < s.opts.Level {
		return nil
	}
	line := s.opts.Formatter.Format(rec.Time, rec.Level.String(), rec.TID, rec.Text())
	return s.send(line)
}

// send writes all of b. Short writes advance the offset. A reset or broken
// pipe closes the socket, reconnects through the address list and resumes
// from the failed offset, so no byte is sent twice on one connection.
func (s *NetworkSink) send(b []byte) error {
	if s.conn == nil {
		if err := s.connect(); err != nil {
			return err
		}
	}

	reconnects := 0
	for off := 0; off < len(b); {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.Timeout))
		n, err := s.conn.Write(b[off:])
		off += n
		if err == nil {
			if n == 0 {
				return fmt.Errorf("send: %w", io.ErrShortWrite)
			}
			continue
		}

		if !isConnectionLost(err) {
			if off > 0 {
				// Part of the line is on the stream; restart on a fresh connection
				_ = s.conn.Close()
				s.conn = nil
			}
			return fmt.Errorf("send: %w", err)
		}

		_ = s.conn.Close()
		s.conn = nil
		if reconnects == maxSendReconnects {
			return fmt.Errorf("send: connection lost %d times in one write: %w", reconnects+1, err)
		}
		reconnects++
		s.opts.Warn("warning - network connection lost (%v), reconnecting\n", err)
		if cerr := s.connect(); cerr != nil {
			return cerr
		}
	}
	return nil
}

// isConnectionLost matches errors that a fresh connection can recover from
func isConnectionLost(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, net.ErrClosed)
}

// Sync implements Sink. Writes go straight to the socket.
func (s *NetworkSink) Sync() error { return nil }

// Close closes the active connection
func (s *NetworkSink) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
