package slogger

// Builder provides a fluent API for building logger configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg *Config
	err error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Logger instance with the specified configuration.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	logger := NewLogger()

	// ApplyConfig handles validation, sink construction and startup
	if err := logger.ApplyConfig(b.cfg); err != nil {
		return nil, err
	}

	return logger, nil
}

// Config returns a copy of the configuration built so far.
func (b *Builder) Config() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg.Clone(), nil
}

// Level sets the log level.
func (b *Builder) Level(level Level) *Builder {
	b.cfg.Level = int64(level)
	return b
}

// LevelString sets the log level from a string.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	levelVal, err := ParseLevel(level)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = int64(levelVal)
	return b
}

// Format sets the file and network output format.
func (b *Builder) Format(format string) *Builder {
	b.cfg.Format = format
	return b
}

// Console enables the console sink on "stdout" or "stderr".
func (b *Builder) Console(target string) *Builder {
	b.cfg.EnableConsole = true
	b.cfg.ConsoleTarget = target
	return b
}

// ConsoleColor sets the color mode: "auto", "always" or "never".
func (b *Builder) ConsoleColor(mode string) *Builder {
	b.cfg.ConsoleColor = mode
	return b
}

// File enables the file sink.
func (b *Builder) File(path string) *Builder {
	b.cfg.EnableFile = true
	b.cfg.FilePath = path
	return b
}

// MaxFileSize sets the rotation threshold in bytes.
func (b *Builder) MaxFileSize(size int64) *Builder {
	b.cfg.MaxFileSize = size
	return b
}

// MaxSizeKB sets the rotation threshold in KB. Convenience.
func (b *Builder) MaxSizeKB(size int64) *Builder {
	b.cfg.MaxFileSize = size * 1024
	return b
}

// MaxBackups sets the number of numbered backups kept.
func (b *Builder) MaxBackups(n int64) *Builder {
	b.cfg.MaxBackups = n
	return b
}

// Archive enables zipping of evicted backups.
func (b *Builder) Archive(enable bool) *Builder {
	b.cfg.ArchiveOldLogs = enable
	return b
}

// Network enables the network sink.
func (b *Builder) Network(host string, port int, level Level) *Builder {
	b.cfg.EnableNetwork = true
	b.cfg.NetworkHost = host
	b.cfg.NetworkPort = int64(port)
	b.cfg.NetworkLevel = int64(level)
	return b
}

// NetworkTimeoutMs sets the connection timeout.
func (b *Builder) NetworkTimeoutMs(ms int64) *Builder {
	b.cfg.NetworkTimeoutMs = ms
	return b
}

// BufferSize sets the queue capacity.
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.BufferSize = size
	return b
}

// PollIntervalMs sets the dispatcher idle sleep.
func (b *Builder) PollIntervalMs(ms int64) *Builder {
	b.cfg.PollIntervalMs = ms
	return b
}

// Sanitization sets the text policy, "txt" or "raw".
func (b *Builder) Sanitization(policy string) *Builder {
	b.cfg.Sanitization = policy
	return b
}

// HeartbeatIntervalS sets the heartbeat interval; 0 disables.
func (b *Builder) HeartbeatIntervalS(interval int64) *Builder {
	b.cfg.HeartbeatIntervalS = interval
	return b
}

// InternalErrorsToStderr toggles diagnostics on stderr.
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// Example usage:
// logger, err := slogger.NewBuilder().
//
//	File("/var/log/app/app.log").
//	MaxFileSize(10 << 20).
//	Archive(true).
//	LevelString("debug").
//	Console("stderr").
//	Build()
//
// if err == nil {
//
//	 defer logger.Shutdown()
//	 logger.Info("Logger initialized successfully")
//
// }
