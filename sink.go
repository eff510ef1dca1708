package slogger

import (
	"fmt"
	"slices"
)

// Sink is an output destination. The dispatcher goroutine is the only caller
// of Forward, Sync and Close once a sink is installed.
type Sink interface {
	// Name identifies the sink kind; installing a sink replaces one with the same name
	Name() string
	// Forward delivers one record
	Forward(rec *Record) error
	// Sync pushes buffered output to its destination
	Sync() error
	// Close releases the sink; it is not used afterwards
	Close() error
}

// Sink names
const (
	sinkConsole = "console"
	sinkFile    = "file"
	sinkNetwork = "network"
)

// forward delivers rec to every installed sink. A failing sink does not stop the others.
func (l *Logger) forward(rec *Record) {
	for _, s := range *l.sinks.Load() {
		if err := forwardTo(s, rec); err != nil {
			l.state.SinkErrors.Add(1)
			l.internalLog("%s sink: %v\n", s.Name(), err)
		}
	}
}

// forwardTo isolates the dispatcher from a panicking sink
func forwardTo(s Sink, rec *Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in Forward: %v", r)
		}
	}()
	return s.Forward(rec)
}

// syncSinks syncs every installed sink, returning the combined error
func (l *Logger) syncSinks() error {
	var err error
	for _, s := range *l.sinks.Load() {
		if serr := s.Sync(); serr != nil {
			err = combineErrors(err, fmtErrorf("failed to sync %s sink: %w", s.Name(), serr))
		}
	}
	return err
}

// installSink publishes a sink set containing s, returning the sink it replaced if any.
// Callers hold initMu.
func (l *Logger) installSink(s Sink) Sink {
	current := *l.sinks.Load()
	next := make([]Sink, 0, len(current)+1)
	var replaced Sink
	for _, existing := range current {
		if existing.Name() == s.Name() {
			replaced = existing
			continue
		}
		next = append(next, existing)
	}
	next = append(next, s)
	l.sinks.Store(&next)
	return replaced
}

// removeSink publishes a sink set without the named sink, returning the removed sink.
// Callers hold initMu.
func (l *Logger) removeSink(name string) Sink {
	current := *l.sinks.Load()
	idx := slices.IndexFunc(current, func(s Sink) bool { return s.Name() == name })
	if idx < 0 {
		return nil
	}
	removed := current[idx]
	next := slices.Delete(slices.Clone(current), idx, idx+1)
	l.sinks.Store(&next)
	return removed
}

// detachSinks publishes an empty sink set and returns the previous one.
// Callers hold initMu and have stopped the dispatcher.
func (l *Logger) detachSinks() []Sink {
	empty := []Sink{}
	return *l.sinks.Swap(&empty)
}

// closeSinks syncs and closes each sink, returning the combined error
func closeSinks(sinks []Sink) error {
	var err error
	for _, s := range sinks {
		if serr := s.Sync(); serr != nil {
			err = combineErrors(err, fmtErrorf("failed to sync %s sink during shutdown: %w", s.Name(), serr))
		}
		if cerr := s.Close(); cerr != nil {
			err = combineErrors(err, fmtErrorf("failed to close %s sink during shutdown: %w", s.Name(), cerr))
		}
	}
	return err
}
