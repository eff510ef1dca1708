package slogger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lixenwraith/slogger/formatter"
	"github.com/lixenwraith/slogger/sanitizer"
)

// Record is one log entry as it travels through the queue.
// It is a plain value: pushing copies it into a queue slot.
type Record struct {
	Level Level
	Time  time.Time
	TID   int

	n    uint16
	text [MaxTextSize]byte
}

// newRecord builds a record, truncating text to MaxTextSize at a rune boundary
func newRecord(level Level, ts time.Time, tid int, text []byte) Record {
	r := Record{Level: level, Time: ts, TID: tid}
	r.setText(text)
	return r
}

func (r *Record) setText(text []byte) {
	text = sanitizer.Truncate(text, MaxTextSize)
	r.n = uint16(copy(r.text[:], text))
}

// Text returns the message text
func (r *Record) Text() string {
	return string(r.text[:r.n])
}

// scratchPool holds producer-side formatting buffers
var scratchPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, MaxTextSize*2)
		return &b
	},
}

// accepts reports whether a record at level would be queued.
// Records are dropped silently while the logger is not initialized.
func (l *Logger) accepts(level Level) bool {
	return l.state.IsInitialized.Load() && int64(level) >= l.state.Level.Load()
}

// logArgs joins args with spaces and queues the result
func (l *Logger) logArgs(level Level, args ...any) {
	if !l.accepts(level) {
		return
	}
	bp := scratchPool.Get().(*[]byte)
	*bp = formatter.AppendArgs((*bp)[:0], args...)
	l.push(level, *bp)
	scratchPool.Put(bp)
}

// logf formats printf-style and queues the result
func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.accepts(level) {
		return
	}
	bp := scratchPool.Get().(*[]byte)
	*bp = fmt.Appendf((*bp)[:0], format, args...)
	l.push(level, *bp)
	scratchPool.Put(bp)
}

// push copies text into a record and offers it to the queue
func (l *Logger) push(level Level, text []byte) {
	rec := newRecord(level, time.Now(), currentTID(), text)

	l.pushMu.Lock()
	if l.state.IsInitialized.Load() {
		l.queue.Load().TryPush(rec)
	}
	l.pushMu.Unlock()
}

// internalLog handles writing internal logger diagnostics to stderr, if enabled.
func (l *Logger) internalLog(format string, args ...any) {
	cfg := l.getConfig()
	if !cfg.InternalErrorsToStderr {
		return
	}

	if !strings.HasPrefix(format, errorPrefix) {
		format = errorPrefix + format
	}

	fmt.Fprintf(os.Stderr, format, args...)
}
