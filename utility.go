package slogger

import (
	"fmt"
	"strconv"
	"strings"
)

// errorPrefix marks every error and diagnostic this package produces
const errorPrefix = "slogger: "

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, errorPrefix) {
		format = errorPrefix + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	return fmt.Errorf("%v; %w", err1, err2)
}

// parseKeyValue splits a "key=value" string.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", fmtErrorf("invalid format in override string '%s', expected key=value", arg)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", fmtErrorf("key cannot be empty in override string '%s'", arg)
	}
	return key, value, nil
}

// ParseLevel converts a level name or number to a Level.
// Names are case-insensitive; "WARNING" and "WARN" are equivalent.
func ParseLevel(levelStr string) (Level, error) {
	s := strings.TrimSpace(levelStr)
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= int64(LevelTrace) && n <= int64(LevelError) {
		return Level(n), nil
	}
	return 0, fmtErrorf("invalid level string: '%s' (use trace, debug, info, warn, error)", levelStr)
}

// parseBool accepts strconv.ParseBool forms plus yes/no
func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(value))
}
