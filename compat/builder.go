package compat

import (
	"fmt"

	"github.com/lixenwraith/slogger"
)

// Builder creates gnet and fasthttp adapters sharing one logger.
// It uses an existing *slogger.Logger or creates one from a *slogger.Config.
type Builder struct {
	logger *slogger.Logger
	logCfg *slogger.Config
	err    error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger specifies an existing logger to use for the adapters.
// If this is set WithConfig is ignored.
func (b *Builder) WithLogger(l *slogger.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("slogger/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig provides a configuration for a new logger instance.
// Without either, a logger with a stdout console sink is created.
func (b *Builder) WithConfig(cfg *slogger.Config) *Builder {
	b.logCfg = cfg
	return b
}

func (b *Builder) getLogger() (*slogger.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.logger != nil {
		return b.logger, nil
	}

	cfg := b.logCfg
	if cfg == nil {
		cfg = slogger.DefaultConfig()
		cfg.EnableConsole = true
	}

	l := slogger.NewLogger()
	if err := l.ApplyConfig(cfg); err != nil {
		return nil, err
	}

	// Cached for subsequent builds
	b.logger = l
	return l, nil
}

// BuildGnet creates a gnet adapter, usable with gnet.WithLogger
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter, assignable to fasthttp.Server.Logger
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// GetLogger returns the underlying logger, creating it if needed
func (b *Builder) GetLogger() (*slogger.Logger, error) {
	return b.getLogger()
}
