package slogger

import (
	"errors"
	"time"

	"github.com/lixenwraith/slogger/ring"
)

// ErrNotStarted is returned by operations that need a running dispatcher
var ErrNotStarted = errors.New("slogger: dispatcher not running")

// ensureStarted allocates a fresh queue and starts the dispatcher if it is stopped.
// Callers hold initMu.
func (l *Logger) ensureStarted() error {
	if l.state.Running.Load() {
		return nil
	}
	if err := l.checkStartable(); err != nil {
		return err
	}

	cfg := l.getConfig()

	// Retire drops of the previous queue so Dropped() stays monotonic
	if old := l.queue.Load(); old != nil {
		l.state.DroppedLogs.Add(old.Dropped())
	}
	q := ring.New[Record](int(cfg.BufferSize))
	l.queue.Store(q)

	done := make(chan struct{})
	l.done = done

	l.state.Running.Store(true)
	l.state.ProcessorExited.Store(false)
	l.state.Dispatcher.Store(dispatcherRunning)
	l.state.ShutdownCalled.Store(false)
	l.state.LoggerStartTime.Store(time.Now())

	l.pushMu.Lock()
	l.state.IsInitialized.Store(true)
	l.pushMu.Unlock()

	go l.dispatch(q, done)
	return nil
}

// checkStartable fails while a dispatcher from a timed-out stop is still draining
func (l *Logger) checkStartable() error {
	if l.state.Running.Load() {
		return nil
	}
	if st := l.state.Dispatcher.Load(); st != dispatcherStopped {
		return fmtErrorf("dispatcher still draining from a previous stop (state %d)", st)
	}
	return nil
}

// dispatch is the consumer loop. It owns every sink while running.
func (l *Logger) dispatch(q *ring.Ring[Record], done chan struct{}) {
	defer func() {
		l.state.ProcessorExited.Store(true)
		l.state.Dispatcher.Store(dispatcherStopped)
		close(done)
	}()

	cfg := l.getConfig()
	poll := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	var heartbeat <-chan time.Time
	if cfg.HeartbeatIntervalS > 0 {
		ticker := time.NewTicker(time.Duration(cfg.HeartbeatIntervalS) * time.Second)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	var reportedDrops uint64
	lastReport := time.Now()

	for l.state.Running.Load() {
		n := l.drainBatch(q, dispatchBatch)

		if now := time.Now(); now.Sub(lastReport) >= dropReportInterval {
			if d := q.Dropped(); d > reportedDrops {
				l.internalLog("ring buffer full, dropped %d records\n", d-reportedDrops)
				reportedDrops = d
			}
			lastReport = now
		}

		select {
		case req := <-l.state.requestChan:
			req.fn()
			close(req.done)
		case <-heartbeat:
			l.logProcHeartbeat(q)
		default:
			if n == 0 {
				time.Sleep(poll)
			}
		}
	}

	// Run flag cleared: pop until empty before exiting
	l.state.Dispatcher.Store(dispatcherDraining)
	for l.drainBatch(q, dispatchBatch) > 0 {
	}
	if d := q.Dropped(); d > reportedDrops {
		l.internalLog("ring buffer full, dropped %d records\n", d-reportedDrops)
	}
}

// drainBatch forwards up to max records and returns how many it popped
func (l *Logger) drainBatch(q *ring.Ring[Record], max int) int {
	n := 0
	for n < max {
		rec, ok := q.TryPop()
		if !ok {
			break
		}
		l.forward(&rec)
		l.state.TotalLogsProcessed.Add(1)
		n++
	}
	return n
}

// stopDispatcher clears the run flag and waits for the loop to finish its drain.
// A no-op when stopped. Callers hold initMu and have closed the producer gate,
// so the loop's final pass sees every accepted record.
func (l *Logger) stopDispatcher(timeout time.Duration) error {
	if l.state.Dispatcher.Load() == dispatcherStopped {
		return nil
	}
	l.state.Dispatcher.CompareAndSwap(dispatcherRunning, dispatcherDraining)
	l.state.Running.Store(false)

	if timeout <= 0 {
		timeout = time.Duration(l.getConfig().ShutdownTimeoutMs) * time.Millisecond
	}

	select {
	case <-l.done:
		return nil
	case <-time.After(timeout):
		return fmtErrorf("dispatcher did not exit within timeout (%v)", timeout)
	}
}

// runInDispatcher executes fn on the dispatcher goroutine and waits for it.
// Callers hold initMu.
func (l *Logger) runInDispatcher(fn func(), timeout time.Duration) error {
	if !l.state.Running.Load() {
		return ErrNotStarted
	}

	req := request{fn: fn, done: make(chan struct{})}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.state.requestChan <- req:
	case <-l.done:
		return ErrNotStarted
	case <-timer.C:
		return fmtErrorf("failed to send request to dispatcher within %v", timeout)
	}

	select {
	case <-req.done:
		return nil
	case <-timer.C:
		return fmtErrorf("timeout waiting for dispatcher (%v)", timeout)
	}
}
