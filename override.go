package slogger

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyConfigString applies string key-value overrides to the logger's current configuration.
// Each override should be in the format "key=value".
// The configuration is cloned before modification and applied only if every override parses.
//
// Example:
//
//	logger := slogger.NewLogger()
//	err := logger.ApplyConfigString(
//	    "enable_file=true",
//	    "file_path=/var/log/app/app.log",
//	    "level=debug",
//	)
//
// The keys of the legacy ini format are accepted as aliases:
// logger=console|file|both, logger.level, logger.console.output,
// logger.console.level, logger.file.output, logger.file.maxFileSize,
// logger.file.archiveOldLogs.
func (l *Logger) ApplyConfigString(overrides ...string) error {
	cfg := l.getConfig().Clone()

	var errors []error

	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errors = append(errors, err)
			continue
		}

		if err := applyConfigField(cfg, key, value); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return combineConfigErrors(errors)
	}

	return l.ApplyConfig(cfg)
}

// combineConfigErrors combines multiple configuration errors into a single error.
func combineConfigErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	if len(errors) == 1 {
		return errors[0]
	}

	var sb strings.Builder
	sb.WriteString(errorPrefix + "multiple configuration errors:")
	for i, err := range errors {
		errMsg := strings.TrimPrefix(err.Error(), errorPrefix)
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return fmt.Errorf("%s", sb.String())
}

// legacyKeys maps ini keys onto TOML field names
var legacyKeys = map[string]string{
	"logger.level":               "level",
	"logger.console.output":      "console_target",
	"logger.console.level":       "level",
	"logger.file.output":         "file_path",
	"logger.file.maxFileSize":    "max_file_size",
	"logger.file.archiveOldLogs": "archive_old_logs",
}

// applyConfigField applies a single key-value override to a Config.
func applyConfigField(cfg *Config, key, value string) error {
	if alias, ok := legacyKeys[key]; ok {
		key = alias
	}

	switch key {
	case "logger":
		switch strings.ToLower(value) {
		case "console":
			cfg.EnableConsole = true
		case "file":
			cfg.EnableFile = true
		case "both":
			cfg.EnableConsole = true
			cfg.EnableFile = true
		default:
			return fmtErrorf("invalid logger type '%s' (use console, file or both)", value)
		}

	// Basic settings
	case "level":
		lv, err := ParseLevel(value)
		if err != nil {
			return fmtErrorf("invalid level value '%s': %w", value, err)
		}
		cfg.Level = int64(lv)
	case "format":
		cfg.Format = value

	// Console
	case "enable_console":
		return setBool(&cfg.EnableConsole, key, value)
	case "console_target":
		cfg.ConsoleTarget = strings.ToLower(value)
	case "console_color":
		cfg.ConsoleColor = value

	// File
	case "enable_file":
		return setBool(&cfg.EnableFile, key, value)
	case "file_path":
		cfg.FilePath = value
	case "max_file_size":
		return setInt(&cfg.MaxFileSize, key, value)
	case "max_backups":
		return setInt(&cfg.MaxBackups, key, value)
	case "archive_old_logs":
		return setBool(&cfg.ArchiveOldLogs, key, value)

	// Network
	case "enable_network":
		return setBool(&cfg.EnableNetwork, key, value)
	case "network_host":
		cfg.NetworkHost = value
	case "network_port":
		return setInt(&cfg.NetworkPort, key, value)
	case "network_level":
		lv, err := ParseLevel(value)
		if err != nil {
			return fmtErrorf("invalid network_level value '%s': %w", value, err)
		}
		cfg.NetworkLevel = int64(lv)
	case "network_timeout_ms":
		return setInt(&cfg.NetworkTimeoutMs, key, value)

	// Dispatcher
	case "buffer_size":
		return setInt(&cfg.BufferSize, key, value)
	case "poll_interval_ms":
		return setInt(&cfg.PollIntervalMs, key, value)
	case "shutdown_timeout_ms":
		return setInt(&cfg.ShutdownTimeoutMs, key, value)

	case "sanitization":
		cfg.Sanitization = value
	case "heartbeat_interval_s":
		return setInt(&cfg.HeartbeatIntervalS, key, value)
	case "internal_errors_to_stderr":
		return setBool(&cfg.InternalErrorsToStderr, key, value)

	default:
		return fmtErrorf("unknown configuration key '%s'", key)
	}

	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := parseBool(value)
	if err != nil {
		return fmtErrorf("invalid boolean value for %s '%s': %w", key, value, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int64, key, value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmtErrorf("invalid integer value for %s '%s': %w", key, value, err)
	}
	*dst = n
	return nil
}
