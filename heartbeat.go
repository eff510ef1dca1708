package slogger

import (
	"fmt"
	"time"

	"github.com/lixenwraith/slogger/ring"
)

// logProcHeartbeat forwards a logger statistics record straight to the sinks.
// Runs on the dispatcher goroutine, so the record skips the queue and is not
// counted as processed.
func (l *Logger) logProcHeartbeat(q *ring.Ring[Record]) {
	sequence := l.state.HeartbeatSequence.Add(1)

	var uptimeHours float64
	if startTime, ok := l.state.LoggerStartTime.Load().(time.Time); ok && !startTime.IsZero() {
		uptimeHours = time.Since(startTime).Hours()
	}

	text := fmt.Appendf(nil,
		"type proc sequence %d uptime_hours %.2f processed %d dropped %d rotations %d archives %d sink_errors %d queued %d",
		sequence,
		uptimeHours,
		l.state.TotalLogsProcessed.Load(),
		l.state.DroppedLogs.Load()+q.Dropped(),
		l.state.TotalRotations.Load(),
		l.state.TotalArchives.Load(),
		l.state.SinkErrors.Load(),
		q.Len(),
	)

	rec := newRecord(LevelInfo, time.Now(), currentTID(), text)
	l.forward(&rec)
}
