package slogger

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/slogger/formatter"
	"github.com/lixenwraith/slogger/ring"
	"github.com/lixenwraith/slogger/sanitizer"
)

// Logger is the core struct that encapsulates all logger functionality
type Logger struct {
	currentConfig atomic.Value // stores *Config
	state         State
	initMu        sync.Mutex // serializes Init*, ApplyConfig, Flush and Shutdown
	pushMu        sync.Mutex // serializes producers on the single-producer queue
	queue         atomic.Pointer[ring.Ring[Record]]
	sinks         atomic.Pointer[[]Sink]
	done          chan struct{} // closed when the current dispatcher returns; guarded by initMu
}

// NewLogger creates a new Logger instance with default settings.
// No sink is installed and records are discarded until the first Init call.
func NewLogger() *Logger {
	l := &Logger{}

	l.currentConfig.Store(DefaultConfig())

	l.state.IsInitialized.Store(false)
	l.state.ShutdownCalled.Store(false)
	l.state.Running.Store(false)
	l.state.ProcessorExited.Store(true)
	l.state.Dispatcher.Store(dispatcherStopped)
	l.state.Level.Store(defaultConfig.Level)
	l.state.LoggerStartTime.Store(time.Time{})

	l.state.requestChan = make(chan request)

	empty := []Sink{}
	l.sinks.Store(&empty)

	return l
}

// ApplyConfig replaces the whole configuration. New sinks are built first; if
// any fails the running logger is left untouched. Otherwise the dispatcher is
// drained and stopped, the old sinks closed, and the logger restarted with the
// sinks the configuration enables.
func (l *Logger) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmtErrorf("invalid configuration: %w", err)
	}
	cfg = cfg.Clone()

	l.initMu.Lock()
	defer l.initMu.Unlock()

	sinks, err := l.buildSinks(cfg)
	if err != nil {
		return err
	}

	var finalErr error
	if err := l.teardown(0); err != nil {
		_ = closeSinks(sinks)
		return fmtErrorf("failed to stop dispatcher for reconfiguration: %w", err)
	}

	l.currentConfig.Store(cfg)
	l.state.Level.Store(cfg.Level)

	for _, s := range sinks {
		l.installSink(s)
	}

	if err := l.ensureStarted(); err != nil {
		finalErr = combineErrors(finalErr, err)
	}
	return finalErr
}

// buildSinks constructs every sink cfg enables. On failure the ones already built are closed.
func (l *Logger) buildSinks(cfg *Config) ([]Sink, error) {
	var sinks []Sink

	if cfg.EnableConsole {
		var w io.Writer = os.Stdout
		if cfg.ConsoleTarget == "stderr" {
			w = os.Stderr
		}
		sinks = append(sinks, NewConsoleSink(w, cfg.ConsoleColor, l.newFormatter(cfg)))
	}

	if cfg.EnableFile {
		fs, err := NewFileSink(l.fileOptions(cfg, cfg.FilePath, cfg.MaxFileSize, cfg.ArchiveOldLogs))
		if err != nil {
			_ = closeSinks(sinks)
			return nil, err
		}
		sinks = append(sinks, fs)
	}

	if cfg.EnableNetwork {
		ns, err := NewNetworkSink(l.networkOptions(cfg, cfg.NetworkHost, int(cfg.NetworkPort), Level(cfg.NetworkLevel)))
		if err != nil {
			_ = closeSinks(sinks)
			return nil, fmtErrorf("failed to initialize network sink: %w", err)
		}
		sinks = append(sinks, ns)
	}

	return sinks, nil
}

// newFormatter builds a formatter for one sink following cfg's format and sanitization
func (l *Logger) newFormatter(cfg *Config) *formatter.Formatter {
	return formatter.New(sanitizer.ForPolicy(sanitizer.PolicyPreset(cfg.Sanitization))).Type(cfg.Format)
}

func (l *Logger) fileOptions(cfg *Config, path string, maxSize int64, archive bool) FileOptions {
	return FileOptions{
		Path:       path,
		MaxSize:    maxSize,
		MaxBackups: int(cfg.MaxBackups),
		Archive:    archive,
		Formatter:  l.newFormatter(cfg),
		Warn:       l.internalLog,
		OnRotate:   func() { l.state.TotalRotations.Add(1) },
		OnArchive:  func(string, int) { l.state.TotalArchives.Add(1) },
	}
}

func (l *Logger) networkOptions(cfg *Config, host string, port int, level Level) NetworkOptions {
	return NetworkOptions{
		Host:      host,
		Port:      port,
		Level:     level,
		Timeout:   time.Duration(cfg.NetworkTimeoutMs) * time.Millisecond,
		Formatter: l.newFormatter(cfg),
		Warn:      l.internalLog,
	}
}

// GetConfig returns a copy of current configuration
func (l *Logger) GetConfig() *Config {
	return l.getConfig().Clone()
}

// SetLevel sets the minimum level accepted by the producer path
func (l *Logger) SetLevel(level Level) {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	l.state.Level.Store(int64(level))
	cfg := l.getConfig().Clone()
	cfg.Level = int64(level)
	l.currentConfig.Store(cfg)
}

// GetLevel returns the minimum accepted level
func (l *Logger) GetLevel() Level {
	return Level(l.state.Level.Load())
}

// InitConsole adds (or replaces) the console sink writing to w; nil selects stdout
func (l *Logger) InitConsole(w io.Writer) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	cfg := l.getConfig().Clone()
	cfg.EnableConsole = true
	if w == nil {
		w = os.Stdout
	}
	switch w {
	case os.Stdout:
		cfg.ConsoleTarget = "stdout"
	case os.Stderr:
		cfg.ConsoleTarget = "stderr"
	}

	return l.publish(cfg, NewConsoleSink(w, cfg.ConsoleColor, l.newFormatter(cfg)))
}

// InitFile adds (or replaces) the file sink. maxSize <= 0 selects DefaultMaxFileSize.
func (l *Logger) InitFile(path string, maxSize int64, archive bool) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	cfg := l.getConfig().Clone()
	cfg.EnableFile = true
	cfg.FilePath = path
	cfg.MaxFileSize = maxSize
	cfg.ArchiveOldLogs = archive

	s, err := NewFileSink(l.fileOptions(cfg, path, maxSize, archive))
	if err != nil {
		return err
	}
	return l.publish(cfg, s)
}

// InitNetwork adds (or replaces) the network sink. Records below level are not sent.
func (l *Logger) InitNetwork(host string, port int, level Level) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	cfg := l.getConfig().Clone()
	cfg.EnableNetwork = true
	cfg.NetworkHost = host
	cfg.NetworkPort = int64(port)
	cfg.NetworkLevel = int64(level)

	s, err := NewNetworkSink(l.networkOptions(cfg, host, port, level))
	if err != nil {
		return fmtErrorf("failed to initialize network sink: %w", err)
	}
	return l.publish(cfg, s)
}

// publish stores cfg, installs a fully constructed sink and starts the
// dispatcher if needed. The sink is in place before the producer gate opens.
// A replaced sink is closed on the dispatcher goroutine. Callers hold initMu.
func (l *Logger) publish(cfg *Config, s Sink) error {
	if err := l.checkStartable(); err != nil {
		_ = s.Close()
		return err
	}
	l.currentConfig.Store(cfg)

	replaced := l.installSink(s)
	if err := l.ensureStarted(); err != nil {
		return err
	}
	if replaced == nil {
		return nil
	}

	var closeErr error
	timeout := time.Duration(cfg.ShutdownTimeoutMs) * time.Millisecond
	if err := l.runInDispatcher(func() { closeErr = closeSinks([]Sink{replaced}) }, timeout); err != nil {
		return fmtErrorf("failed to retire previous %s sink: %w", replaced.Name(), err)
	}
	return closeErr
}

// Shutdown stops accepting records, drains the queue into the sinks and closes
// them. It is idempotent, and the logger can be initialized again afterwards.
// Without a timeout argument the configured shutdown_timeout_ms bounds the wait.
// On timeout the sinks are left open, since the dispatcher may still use them.
func (l *Logger) Shutdown(timeout ...time.Duration) error {
	if !l.state.ShutdownCalled.CompareAndSwap(false, true) {
		return nil
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()

	var effectiveTimeout time.Duration
	if len(timeout) > 0 {
		effectiveTimeout = timeout[0]
	}
	return l.teardown(effectiveTimeout)
}

// teardown closes the producer gate, stops the dispatcher and closes every sink.
// Callers hold initMu.
func (l *Logger) teardown(timeout time.Duration) error {
	l.pushMu.Lock()
	l.state.IsInitialized.Store(false)
	l.pushMu.Unlock()

	if err := l.stopDispatcher(timeout); err != nil {
		return err
	}
	return closeSinks(l.detachSinks())
}

// Flush forwards every queued record and syncs the sinks, waiting up to timeout
func (l *Logger) Flush(timeout time.Duration) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if !l.state.IsInitialized.Load() || l.state.ShutdownCalled.Load() {
		return fmtErrorf("logger not initialized or already shut down")
	}

	var syncErr error
	q := l.queue.Load()
	err := l.runInDispatcher(func() {
		for l.drainBatch(q, dispatchBatch) > 0 {
		}
		syncErr = l.syncSinks()
	}, timeout)
	if err != nil {
		return err
	}
	return syncErr
}

// getConfig returns the current configuration (thread-safe)
func (l *Logger) getConfig() *Config {
	return l.currentConfig.Load().(*Config)
}

// Log logs args at the given level, joined by spaces
func (l *Logger) Log(level Level, args ...any) {
	l.logArgs(level, args...)
}

// Logf logs a printf-style message at the given level
func (l *Logger) Logf(level Level, format string, args ...any) {
	l.logf(level, format, args...)
}

// Trace logs a message at trace level
func (l *Logger) Trace(args ...any) {
	l.logArgs(LevelTrace, args...)
}

// Debug logs a message at debug level
func (l *Logger) Debug(args ...any) {
	l.logArgs(LevelDebug, args...)
}

// Info logs a message at info level
func (l *Logger) Info(args ...any) {
	l.logArgs(LevelInfo, args...)
}

// Warn logs a message at warning level
func (l *Logger) Warn(args ...any) {
	l.logArgs(LevelWarn, args...)
}

// Error logs a message at error level
func (l *Logger) Error(args ...any) {
	l.logArgs(LevelError, args...)
}

// Tracef logs a formatted message at trace level
func (l *Logger) Tracef(format string, args ...any) {
	l.Logf(LevelTrace, format, args...)
}

// Debugf logs a formatted message at debug level
func (l *Logger) Debugf(format string, args ...any) {
	l.Logf(LevelDebug, format, args...)
}

// Infof logs a formatted message at info level
func (l *Logger) Infof(format string, args ...any) {
	l.Logf(LevelInfo, format, args...)
}

// Warnf logs a formatted message at warning level
func (l *Logger) Warnf(format string, args ...any) {
	l.Logf(LevelWarn, format, args...)
}

// Errorf logs a formatted message at error level
func (l *Logger) Errorf(format string, args ...any) {
	l.Logf(LevelError, format, args...)
}
