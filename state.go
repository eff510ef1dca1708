package slogger

import (
	"sync/atomic"
	"time"
)

// State encapsulates the runtime state of the logger
type State struct {
	IsInitialized   atomic.Bool  // accepting records; read by producers under pushMu
	ShutdownCalled  atomic.Bool  // set by Shutdown, cleared by the next start
	Running         atomic.Bool  // dispatcher run flag
	Dispatcher      atomic.Int32 // dispatcherStopped, dispatcherRunning or dispatcherDraining
	ProcessorExited atomic.Bool  // dispatcher goroutine has returned
	Level           atomic.Int64 // minimum accepted level

	requestChan chan request // work executed on the dispatcher goroutine

	DroppedLogs atomic.Uint64 // drops of queues already retired
	SinkErrors  atomic.Uint64 // failed sink writes

	// Heartbeat statistics
	HeartbeatSequence  atomic.Uint64 // Counter for heartbeat sequence numbers
	LoggerStartTime    atomic.Value  // time.Time of the latest start
	TotalLogsProcessed atomic.Uint64 // Records delivered to the sink set
	TotalRotations     atomic.Uint64 // Counter for file rotations
	TotalArchives      atomic.Uint64 // Counter for zip containers written
}

// request runs fn on the dispatcher goroutine and closes done afterwards
type request struct {
	fn   func()
	done chan struct{}
}

// Stats is a point-in-time snapshot of logger counters
type Stats struct {
	Processed  uint64 // records forwarded to sinks
	Dropped    uint64 // records rejected by a full queue
	Queued     int    // records waiting in the queue
	SinkErrors uint64 // failed sink writes
	Rotations  uint64 // file rotations
	Archives   uint64 // zip containers written
	Uptime     time.Duration
}

// Stats returns current logger counters
func (l *Logger) Stats() Stats {
	s := Stats{
		Processed:  l.state.TotalLogsProcessed.Load(),
		Dropped:    l.Dropped(),
		SinkErrors: l.state.SinkErrors.Load(),
		Rotations:  l.state.TotalRotations.Load(),
		Archives:   l.state.TotalArchives.Load(),
	}
	if q := l.queue.Load(); q != nil && l.state.Dispatcher.Load() != dispatcherStopped {
		s.Queued = q.Len()
	}
	if start, ok := l.state.LoggerStartTime.Load().(time.Time); ok && !start.IsZero() {
		s.Uptime = time.Since(start)
	}
	return s
}

// Dropped returns the number of records rejected because the queue was full
func (l *Logger) Dropped() uint64 {
	n := l.state.DroppedLogs.Load()
	if q := l.queue.Load(); q != nil {
		n += q.Dropped()
	}
	return n
}
