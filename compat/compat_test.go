package compat

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/slogger"
)

// createTestCompatBuilder creates a builder over a debug-level JSON file logger
func createTestCompatBuilder(t *testing.T) (*Builder, *slogger.Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compat.log")
	appLogger, err := slogger.NewBuilder().
		File(path).
		Format("json").
		LevelString("debug").
		InternalErrorsToStderr(false).
		Build()
	require.NoError(t, err)

	return NewBuilder().WithLogger(appLogger), appLogger, path
}

type entry struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func readEntries(t *testing.T, path string) []entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), "line: %s", scanner.Text())
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestCompatBuilder(t *testing.T) {
	t.Run("with existing logger", func(t *testing.T) {
		builder, logger, _ := createTestCompatBuilder(t)
		defer logger.Shutdown()

		gnetAdapter, err := builder.BuildGnet()
		require.NoError(t, err)
		assert.Same(t, logger, gnetAdapter.logger)

		fasthttpAdapter, err := builder.BuildFastHTTP()
		require.NoError(t, err)
		assert.Same(t, logger, fasthttpAdapter.logger)
	})

	t.Run("with config", func(t *testing.T) {
		logCfg := slogger.DefaultConfig()
		logCfg.EnableFile = true
		logCfg.FilePath = filepath.Join(t.TempDir(), "cfg.log")

		builder := NewBuilder().WithConfig(logCfg)
		fasthttpAdapter, err := builder.BuildFastHTTP()
		require.NoError(t, err)
		assert.NotNil(t, fasthttpAdapter)

		logger1, err := builder.GetLogger()
		require.NoError(t, err)
		defer logger1.Shutdown()

		logger2, err := builder.GetLogger()
		require.NoError(t, err)
		assert.Same(t, logger1, logger2, "created logger is cached")
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewBuilder().WithLogger(nil).BuildGnet()
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		logCfg := slogger.DefaultConfig()
		logCfg.Format = "xml"
		_, err := NewBuilder().WithConfig(logCfg).BuildGnet()
		assert.Error(t, err)
	})
}

func TestGnetAdapter(t *testing.T) {
	builder, logger, path := createTestCompatBuilder(t)
	defer logger.Shutdown()

	var fatalMsg string
	adapter, err := builder.BuildGnet(WithFatalHandler(func(msg string) {
		fatalMsg = msg
	}))
	require.NoError(t, err)

	adapter.Debugf("gnet debug id=%d", 1)
	adapter.Infof("gnet info id=%d", 2)
	adapter.Warnf("gnet warn id=%d", 3)
	adapter.Errorf("gnet error id=%d", 4)
	adapter.Fatalf("gnet fatal id=%d", 5)

	// Fatalf flushed before calling the handler
	assert.Equal(t, "gnet fatal id=5", fatalMsg)
	require.NoError(t, logger.Flush(time.Second))
	entries := readEntries(t, path)

	expected := []entry{
		{"DEBUG", "gnet: gnet debug id=1"},
		{"INFO", "gnet: gnet info id=2"},
		{"WARN", "gnet: gnet warn id=3"},
		{"ERROR", "gnet: gnet error id=4"},
		{"ERROR", "gnet: fatal: gnet fatal id=5"},
	}
	assert.Equal(t, expected, entries)
}

func TestGnetAdapterFlushTimeout(t *testing.T) {
	logger := slogger.NewLogger()
	adapter := NewGnetAdapter(logger,
		WithFatalFlushTimeout(time.Millisecond),
		WithFatalHandler(func(string) {}),
	)
	assert.Equal(t, time.Millisecond, adapter.flushTimeout)

	// An uninitialized logger drops the record and the flush error is ignored
	assert.NotPanics(t, func() { adapter.Fatalf("boom") })
}

func TestFastHTTPAdapter(t *testing.T) {
	builder, logger, path := createTestCompatBuilder(t)
	defer logger.Shutdown()

	adapter, err := builder.BuildFastHTTP()
	require.NoError(t, err)

	testMessages := []string{
		"this is some informational message",
		"a debug message for the developers",
		"warning: something might be wrong",
		"an error occurred while processing",
	}
	for _, msg := range testMessages {
		adapter.Printf("%s", msg)
	}

	require.NoError(t, logger.Flush(time.Second))
	entries := readEntries(t, path)
	require.Len(t, entries, 4)

	expectedLevels := []string{"INFO", "DEBUG", "WARN", "ERROR"}
	for i, e := range entries {
		assert.Equal(t, expectedLevels[i], e.Level)
		assert.Equal(t, "fasthttp: "+testMessages[i], e.Msg)
	}
}

func TestFastHTTPAdapterOptions(t *testing.T) {
	builder, logger, path := createTestCompatBuilder(t)
	defer logger.Shutdown()

	adapter, err := builder.BuildFastHTTP(
		WithDefaultLevel(slogger.LevelWarn),
		WithLevelDetector(func(string) (slogger.Level, bool) { return 0, false }),
	)
	require.NoError(t, err)

	adapter.Printf("request failed with %d", 500)
	require.NoError(t, logger.Flush(time.Second))

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, entry{"WARN", "fasthttp: request failed with 500"}, entries[0])
}

func TestDetectLogLevel(t *testing.T) {
	tests := []struct {
		msg   string
		level slogger.Level
		ok    bool
	}{
		{"connection FAILED", slogger.LevelError, true},
		{"panic recovered", slogger.LevelError, true},
		{"Deprecated header", slogger.LevelWarn, true},
		{"debug: buffer grown", slogger.LevelDebug, true},
		{"trace id 5", slogger.LevelTrace, true},
		{"served request", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			level, ok := DetectLogLevel(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}
