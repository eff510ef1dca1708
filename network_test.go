package slogger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/slogger/formatter"
)

// testCollector accepts one TCP connection and records everything it receives
type testCollector struct {
	ln   net.Listener
	port int
	done chan struct{}
	buf  bytes.Buffer
}

func startCollector(t *testing.T) *testCollector {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	c := &testCollector{
		ln:   ln,
		port: ln.Addr().(*net.TCPAddr).Port,
		done: make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(&c.buf, conn)
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return c
}

// wait returns the received bytes once the sender has closed its connection
func (c *testCollector) wait(t *testing.T) string {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not see the connection close")
	}
	return c.buf.String()
}

// fakeConn accepts up to limit bytes, then fails the write with failErr
type fakeConn struct {
	net.Conn
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	failErr error
	closed  bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.failErr != nil && c.buf.Len()+len(p) > c.limit {
		n := c.limit - c.buf.Len()
		c.buf.Write(p[:n])
		return n, c.failErr
	}
	return c.buf.Write(p)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// fakeNetwork hands out scripted connections and records dialed addresses
type fakeNetwork struct {
	mu     sync.Mutex
	conns  []*fakeConn
	dialed []string
	refuse map[string]bool
}

func (n *fakeNetwork) dial(_ context.Context, _, address string) (net.Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dialed = append(n.dialed, address)
	if n.refuse[address] || len(n.conns) == 0 {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	}
	c := n.conns[0]
	n.conns = n.conns[1:]
	return c, nil
}

func resolveTo(addrs ...string) ResolveFunc {
	return func(context.Context, string) ([]string, error) {
		return addrs, nil
	}
}

func resetErr() error {
	return &net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.ECONNRESET)}
}

func TestNetworkSinkResumesAfterReset(t *testing.T) {
	first := &fakeConn{limit: 5, failErr: resetErr()}
	second := &fakeConn{}
	fn := &fakeNetwork{conns: []*fakeConn{first, second}}

	var warnings []string
	s, err := NewNetworkSink(NetworkOptions{
		Host:    "collector.local",
		Port:    5140,
		Dial:    fn.dial,
		Resolve: resolveTo("10.0.0.1"),
		Warn:    func(format string, args ...any) { warnings = append(warnings, format) },
	})
	require.NoError(t, err)

	payload := []byte("hello world\n")
	require.NoError(t, s.send(payload))

	// One reconnect, and the two connections together carry the payload exactly once
	assert.Equal(t, []string{"10.0.0.1:5140", "10.0.0.1:5140"}, fn.dialed)
	assert.Equal(t, "hello", first.String())
	assert.Equal(t, " world\n", second.String())
	assert.Equal(t, string(payload), first.String()+second.String())
	assert.True(t, first.closed)
	assert.Len(t, warnings, 1)

	require.NoError(t, s.send([]byte("next\n")))
	assert.Equal(t, " world\nnext\n", second.String())
	require.NoError(t, s.Close())
}

func TestNetworkSinkAddressWalk(t *testing.T) {
	conn := &fakeConn{}
	fn := &fakeNetwork{
		conns:  []*fakeConn{conn},
		refuse: map[string]bool{"10.0.0.1:9000": true},
	}

	s, err := NewNetworkSink(NetworkOptions{
		Host:    "collector.local",
		Port:    9000,
		Dial:    fn.dial,
		Resolve: resolveTo("10.0.0.1", "10.0.0.2"),
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []string{"10.0.0.1:9000", "10.0.0.2:9000"}, s.Addresses())
	assert.Equal(t, []string{"10.0.0.1:9000", "10.0.0.2:9000"}, fn.dialed)
}

func TestNetworkSinkNoEndpoint(t *testing.T) {
	fn := &fakeNetwork{}
	_, err := NewNetworkSink(NetworkOptions{
		Host:    "collector.local",
		Port:    9000,
		Dial:    fn.dial,
		Resolve: resolveTo("10.0.0.1", "10.0.0.2"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEndpoint))
	assert.Len(t, fn.dialed, 2)

	t.Run("exhausted during send", func(t *testing.T) {
		conn := &fakeConn{limit: 3, failErr: resetErr()}
		fn := &fakeNetwork{conns: []*fakeConn{conn}}
		s, err := NewNetworkSink(NetworkOptions{
			Host:    "collector.local",
			Port:    9000,
			Dial:    fn.dial,
			Resolve: resolveTo("10.0.0.1"),
		})
		require.NoError(t, err)

		err = s.send([]byte("payload\n"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoEndpoint))

		// The next send starts with a reconnect attempt
		fn.conns = []*fakeConn{{}}
		require.NoError(t, s.send([]byte("again\n")))
	})
}

func TestNetworkSinkOtherErrorsReturned(t *testing.T) {
	conn := &fakeConn{limit: 0, failErr: errors.New("disk on fire")}
	fn := &fakeNetwork{conns: []*fakeConn{conn}}
	s, err := NewNetworkSink(NetworkOptions{
		Host:    "collector.local",
		Port:    9000,
		Dial:    fn.dial,
		Resolve: resolveTo("10.0.0.1"),
	})
	require.NoError(t, err)

	err = s.send([]byte("x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Len(t, fn.dialed, 1, "no reconnect for unrelated errors")
}

func TestNetworkSinkDropsConnectionAfterPartialLine(t *testing.T) {
	first := &fakeConn{limit: 3, failErr: os.ErrDeadlineExceeded}
	second := &fakeConn{}
	fn := &fakeNetwork{conns: []*fakeConn{first, second}}
	s, err := NewNetworkSink(NetworkOptions{
		Host:    "collector.local",
		Port:    9000,
		Dial:    fn.dial,
		Resolve: resolveTo("10.0.0.1"),
	})
	require.NoError(t, err)

	err = s.send([]byte("hello\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.True(t, first.closed)
	assert.Nil(t, s.conn)

	// The next line starts on a clean connection
	require.NoError(t, s.send([]byte("next\n")))
	assert.Equal(t, "hel", first.String())
	assert.Equal(t, "next\n", second.String())
	assert.Len(t, fn.dialed, 2)
}

func TestNetworkSinkLevel(t *testing.T) {
	conn := &fakeConn{}
	fn := &fakeNetwork{conns: []*fakeConn{conn}}
	s, err := NewNetworkSink(NetworkOptions{
		Host:      "collector.local",
		Port:      9000,
		Level:     LevelError,
		Dial:      fn.dial,
		Resolve:   resolveTo("10.0.0.1"),
		Formatter: formatter.New(),
	})
	require.NoError(t, err)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	info := newRecord(LevelInfo, ts, 7, []byte("quiet"))
	errRec := newRecord(LevelError, ts, 7, []byte("loud"))
	require.NoError(t, s.Forward(&info))
	require.NoError(t, s.Forward(&errRec))

	assert.Equal(t, "2024-03-01 12:00:00.000000 [ERROR] [T7] loud\n", conn.String())
}

func TestNetworkSinkValidation(t *testing.T) {
	_, err := NewNetworkSink(NetworkOptions{Port: 80})
	assert.Error(t, err)
	_, err = NewNetworkSink(NetworkOptions{Host: "x", Port: 70000})
	assert.Error(t, err)
	_, err = NewNetworkSink(NetworkOptions{
		Host:    "x",
		Port:    80,
		Resolve: func(context.Context, string) ([]string, error) { return nil, errors.New("no such host") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve")
}

// TestInitNetworkEndToEnd streams through a real TCP socket
func TestInitNetworkEndToEnd(t *testing.T) {
	collector := startCollector(t)

	logger := NewLogger()
	require.NoError(t, logger.InitNetwork("localhost", collector.port, LevelInfo))

	logger.Debug("below network level")
	logger.Info("over the wire")
	logger.Warnf("code %d", 7)
	require.NoError(t, logger.Shutdown(2*time.Second))

	lines := strings.Split(strings.TrimRight(collector.wait(t), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "] over the wire"))
	assert.True(t, strings.HasSuffix(lines[1], "] code 7"))

	t.Run("unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())

		logger := NewLogger()
		err = logger.InitNetwork("127.0.0.1", port, LevelInfo)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoEndpoint))
		assert.False(t, logger.state.Running.Load())
	})
}
