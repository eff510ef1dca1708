package slogger

import (
	"strconv"
	"time"
)

// Level orders records by severity. Records below the logger level are discarded by the producer.
type Level int64

// Log level constants
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the name printed in log lines
func (lv Level) String() string {
	switch lv {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "LEVEL(" + strconv.FormatInt(int64(lv), 10) + ")"
	}
}

// MaxTextSize is the byte capacity of a record's message text
const MaxTextSize = 512

// Defaults shared by Config and the Init entry points
const (
	DefaultBufferSize   = 1024
	DefaultMaxFileSize  = 1 << 20 // 1 MiB
	DefaultMaxBackups   = 10
	DefaultPollInterval = time.Millisecond
)

// Dispatcher lifecycle
const (
	dispatcherStopped int32 = iota
	dispatcherRunning
	dispatcherDraining
)

// Timers
const (
	// Records popped per dispatcher cycle before servicing requests
	dispatchBatch = 256
	// Minimum spacing of dropped-record reports on stderr
	dropReportInterval = time.Second
)
