package compat

import (
	"fmt"
	"os"
	"time"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/slogger"
)

var _ logging.Logger = (*GnetAdapter)(nil)

// GnetAdapter routes gnet's engine logging into a slogger.Logger
type GnetAdapter struct {
	logger       *slogger.Logger
	fatalHandler func(msg string)
	flushTimeout time.Duration
}

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(logger *slogger.Logger, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		logger: logger,
		fatalHandler: func(msg string) {
			os.Exit(1)
		},
		flushTimeout: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler replaces the default os.Exit(1) on Fatalf
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// WithFatalFlushTimeout bounds the flush performed before the fatal handler runs
func WithFatalFlushTimeout(d time.Duration) GnetOption {
	return func(a *GnetAdapter) {
		a.flushTimeout = d
	}
}

func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.logger.Debugf("gnet: "+format, args...)
}

func (a *GnetAdapter) Infof(format string, args ...any) {
	a.logger.Infof("gnet: "+format, args...)
}

func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.logger.Warnf("gnet: "+format, args...)
}

func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.logger.Errorf("gnet: "+format, args...)
}

// Fatalf logs at error level, flushes, and then calls the fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.Errorf("gnet: fatal: %s", msg)

	_ = a.logger.Flush(a.flushTimeout)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
