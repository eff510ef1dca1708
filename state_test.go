package slogger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStats verifies counters across a logger's life
func TestStats(t *testing.T) {
	logger := NewLogger()
	stats := logger.Stats()
	assert.Zero(t, stats.Processed)
	assert.Zero(t, stats.Uptime)

	out := &syncBuffer{}
	require.NoError(t, logger.InitConsole(out))

	for i := 0; i < 25; i++ {
		logger.Info("counted", i)
	}
	logger.Debug("filtered")
	require.NoError(t, logger.Flush(time.Second))

	stats = logger.Stats()
	assert.Equal(t, uint64(25), stats.Processed)
	assert.Zero(t, stats.Dropped)
	assert.Zero(t, stats.Queued)
	assert.Zero(t, stats.SinkErrors)
	assert.Positive(t, stats.Uptime)

	require.NoError(t, logger.Shutdown())
	assert.Equal(t, 25, strings.Count(out.String(), "] counted "))
	assert.Zero(t, logger.Stats().Queued)
}

// TestLoggerShutdown verifies the logger's state and behavior after shutdown is called
func TestLoggerShutdown(t *testing.T) {
	t.Run("normal shutdown", func(t *testing.T) {
		logger, _ := createTestLogger(t)

		logger.Info("shutdown test")

		err := logger.Shutdown(2 * time.Second)
		assert.NoError(t, err)

		assert.True(t, logger.state.ShutdownCalled.Load())
		assert.False(t, logger.state.IsInitialized.Load())
		assert.False(t, logger.state.Running.Load())
	})

	t.Run("shutdown drains the queue", func(t *testing.T) {
		logger, tmpDir := createTestLogger(t)

		for i := 0; i < 500; i++ {
			logger.Info("flood", i)
		}

		require.NoError(t, logger.Shutdown(5*time.Second))
		lines := readLines(t, tmpDir+"/app.log")
		assert.Equal(t, 500, len(lines)+int(logger.Dropped()))
	})

	t.Run("default timeout from config", func(t *testing.T) {
		logger, _ := createTestLogger(t)
		require.NoError(t, logger.ApplyConfigString("shutdown_timeout_ms=1000"))
		assert.NoError(t, logger.Shutdown())
	})
}
