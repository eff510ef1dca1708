package slogger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/slogger/archive"
)

func TestFullLifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "full.log")
	collector := startCollector(t)

	logger, err := NewBuilder().
		File(path).
		MaxFileSize(512).
		MaxBackups(2).
		Archive(true).
		LevelString("debug").
		Network("127.0.0.1", collector.port, LevelError).
		BufferSize(1000).
		InternalErrorsToStderr(false).
		Build()
	require.NoError(t, err, "Logger creation with builder should succeed")
	require.NotNil(t, logger)

	logger.Trace("trace message")
	logger.Debug("debug message")
	logger.Info("info message", map[string]int{"b": 2, "a": 1})
	logger.Warnf("warning %d", 1)
	logger.Error("error message")

	for i := 0; i < 40; i++ {
		logger.Infof("filler line %03d to force rotation", i)
	}

	require.NoError(t, logger.Flush(time.Second))
	require.NoError(t, logger.Shutdown(5*time.Second))

	// Network sink only saw ERROR
	network := collector.wait(t)
	assert.Equal(t, 1, strings.Count(network, "\n"))
	assert.Contains(t, network, "[ERROR] ")

	stats := logger.Stats()
	assert.Equal(t, uint64(44), stats.Processed)
	assert.Positive(t, stats.Rotations)
	assert.Positive(t, stats.Archives)

	// Every line written is in the live file, a backup, or a container
	var all strings.Builder
	for _, p := range []string{path, path + ".1", path + ".2"} {
		if b, err := os.ReadFile(p); err == nil {
			all.Write(b)
		}
	}
	zips, err := filepath.Glob(filepath.Join(tmpDir, "full.log_archive_*.zip"))
	require.NoError(t, err)
	require.NotEmpty(t, zips)
	archivedFiles := 0
	for _, z := range zips {
		summary, err := archive.Verify(z)
		require.NoError(t, err)
		archivedFiles += summary.Files()
	}
	assert.Equal(t, int(stats.Rotations)-2, archivedFiles, "all but the two retained backups were archived")

	content := all.String()
	assert.NotContains(t, content, "trace message")
	assert.Contains(t, content, "filler line 039")
}

func TestConcurrentOperations(t *testing.T) {
	logger, tmpDir := createTestLogger(t)

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Info("worker", id, "log", j)
			}
		}(i)
	}

	// Concurrent level changes and flushes
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			logger.SetLevel(LevelInfo)
			time.Sleep(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			_ = logger.Flush(time.Second)
			_ = logger.Stats()
		}
	}()

	wg.Wait()
	require.NoError(t, logger.Shutdown(2*time.Second))

	lines := readLines(t, filepath.Join(tmpDir, "app.log"))
	assert.Equal(t, 100, len(lines)+int(logger.Dropped()))
}

func TestPackageLevelFunctions(t *testing.T) {
	out := &syncBuffer{}
	require.NoError(t, InitConsole(out))
	defer Shutdown()

	SetLevel(LevelDebug)
	Trace("hidden")
	Debug("visible debug")
	Infof("visible %s", "info")
	Log(LevelWarn, "visible", "warn")
	Logf(LevelError, "visible %v", fmt.Errorf("error"))
	require.NoError(t, Flush(time.Second))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], " [DEBUG] [T")
	assert.True(t, strings.HasSuffix(lines[0], "] visible debug"))
	assert.True(t, strings.HasSuffix(lines[1], "] visible info"))
	assert.True(t, strings.HasSuffix(lines[2], "] visible warn"))
	assert.True(t, strings.HasSuffix(lines[3], "] visible error"))
	assert.Same(t, defaultLogger, Default())
}
