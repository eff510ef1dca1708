package compat

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/slogger"
)

var _ fasthttp.Logger = (*FastHTTPAdapter)(nil)

// FastHTTPAdapter routes fasthttp's server logging into a slogger.Logger
type FastHTTPAdapter struct {
	logger        *slogger.Logger
	defaultLevel  slogger.Level
	levelDetector func(string) (slogger.Level, bool)
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *slogger.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		defaultLevel:  slogger.LevelInfo,
		levelDetector: DetectLogLevel,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level used when no level is detected
func WithDefaultLevel(level slogger.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message content
func WithLevelDetector(detector func(string) (slogger.Level, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp.Logger
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(msg); ok {
			level = detected
		}
	}

	a.logger.Log(level, "fasthttp: "+msg)
}

// DetectLogLevel guesses a level from keywords in msg
func DetectLogLevel(msg string) (slogger.Level, bool) {
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "error"),
		strings.Contains(msgLower, "failed"),
		strings.Contains(msgLower, "fatal"),
		strings.Contains(msgLower, "panic"):
		return slogger.LevelError, true
	case strings.Contains(msgLower, "warn"),
		strings.Contains(msgLower, "deprecated"):
		return slogger.LevelWarn, true
	case strings.Contains(msgLower, "debug"):
		return slogger.LevelDebug, true
	case strings.Contains(msgLower, "trace"):
		return slogger.LevelTrace, true
	}
	return 0, false
}
