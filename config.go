package slogger

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/lixenwraith/config"
	"github.com/pelletier/go-toml/v2"
)

// configPrefix is the table holding logger settings in TOML files
const configPrefix = "slogger."

// Config holds all logger configuration values
type Config struct {
	// Basic settings
	Level  int64  `toml:"level"`  // minimum level, LevelTrace..LevelError
	Format string `toml:"format"` // "txt" or "json", file and network output

	// Console sink
	EnableConsole bool   `toml:"enable_console"`
	ConsoleTarget string `toml:"console_target"` // "stdout" or "stderr"
	ConsoleColor  string `toml:"console_color"`  // "auto", "always" or "never"

	// File sink
	EnableFile     bool   `toml:"enable_file"`
	FilePath       string `toml:"file_path"`
	MaxFileSize    int64  `toml:"max_file_size"`    // bytes before rotation
	MaxBackups     int64  `toml:"max_backups"`      // numbered backups kept
	ArchiveOldLogs bool   `toml:"archive_old_logs"` // bundle evicted backups into zip containers

	// Network sink
	EnableNetwork    bool   `toml:"enable_network"`
	NetworkHost      string `toml:"network_host"`
	NetworkPort      int64  `toml:"network_port"`
	NetworkLevel     int64  `toml:"network_level"`      // minimum level for the network sink
	NetworkTimeoutMs int64  `toml:"network_timeout_ms"` // per connection attempt

	// Dispatcher
	BufferSize        int64 `toml:"buffer_size"`         // queue slots, rounded up to a power of two
	PollIntervalMs    int64 `toml:"poll_interval_ms"`    // idle sleep between queue polls
	ShutdownTimeoutMs int64 `toml:"shutdown_timeout_ms"` // default wait for the drain on shutdown

	// Text handling
	Sanitization string `toml:"sanitization"` // "txt" hex-encodes non-printable runes, "raw" passes through

	// Heartbeat configuration
	HeartbeatIntervalS int64 `toml:"heartbeat_interval_s"` // 0 disables

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"`
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Level:  int64(LevelInfo),
	Format: "txt",

	EnableConsole: false,
	ConsoleTarget: "stdout",
	ConsoleColor:  "auto",

	EnableFile:     false,
	FilePath:       "",
	MaxFileSize:    DefaultMaxFileSize,
	MaxBackups:     DefaultMaxBackups,
	ArchiveOldLogs: false,

	EnableNetwork:    false,
	NetworkHost:      "",
	NetworkPort:      0,
	NetworkLevel:     int64(LevelTrace),
	NetworkTimeoutMs: 2000,

	BufferSize:        DefaultBufferSize,
	PollIntervalMs:    1,
	ShutdownTimeoutMs: 5000,

	Sanitization: "txt",

	HeartbeatIntervalS: 0,

	InternalErrorsToStderr: true,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads configuration from the [slogger] table of a TOML file.
// A missing file yields the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()

	if err := loader.RegisterStruct(configPrefix, *cfg); err != nil {
		return nil, fmtErrorf("failed to register config struct: %w", err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmtErrorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, configPrefix, cfg); err != nil {
		return nil, fmtErrorf("failed to extract config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides keyed by TOML name
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmtErrorf("failed to apply overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig writes the configuration as a [slogger] TOML table
func (c *Config) SaveConfig(path string) error {
	doc := struct {
		Slogger *Config `toml:"slogger"`
	}{Slogger: c}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmtErrorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmtErrorf("failed to write config to %s: %w", path, err)
	}
	return nil
}

// extractConfig copies values found by the loader into cfg
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		if tomlTag := t.Field(i).Tag.Get("toml"); tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		case Level:
			field.SetInt(int64(v))
		case float64:
			// TOML decoders may hand back whole numbers as floats
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c.Level < int64(LevelTrace) || c.Level > int64(LevelError) {
		return fmtErrorf("level out of range: %d (use %d..%d)", c.Level, LevelTrace, LevelError)
	}

	if c.Format != "txt" && c.Format != "json" {
		return fmtErrorf("invalid format: '%s' (use txt or json)", c.Format)
	}

	if c.ConsoleTarget != "stdout" && c.ConsoleTarget != "stderr" {
		return fmtErrorf("invalid console_target: '%s' (use stdout or stderr)", c.ConsoleTarget)
	}

	switch c.ConsoleColor {
	case "auto", "always", "never":
	default:
		return fmtErrorf("invalid console_color: '%s' (use auto, always or never)", c.ConsoleColor)
	}

	if c.Sanitization != "txt" && c.Sanitization != "raw" {
		return fmtErrorf("invalid sanitization: '%s' (use txt or raw)", c.Sanitization)
	}

	if c.MaxFileSize <= 0 {
		return fmtErrorf("max_file_size must be positive: %d", c.MaxFileSize)
	}

	if c.MaxBackups < 1 {
		return fmtErrorf("max_backups must be at least 1: %d", c.MaxBackups)
	}

	if c.BufferSize <= 0 {
		return fmtErrorf("buffer_size must be positive: %d", c.BufferSize)
	}

	if c.PollIntervalMs <= 0 || c.ShutdownTimeoutMs <= 0 || c.NetworkTimeoutMs <= 0 {
		return fmtErrorf("interval settings must be positive")
	}

	if c.HeartbeatIntervalS < 0 {
		return fmtErrorf("heartbeat_interval_s cannot be negative: %d", c.HeartbeatIntervalS)
	}

	if c.NetworkLevel < int64(LevelTrace) || c.NetworkLevel > int64(LevelError) {
		return fmtErrorf("network_level out of range: %d", c.NetworkLevel)
	}

	// Cross-field validations
	if c.EnableFile && strings.TrimSpace(c.FilePath) == "" {
		return fmtErrorf("file_path is required when file output is enabled")
	}

	if c.EnableNetwork {
		if strings.TrimSpace(c.NetworkHost) == "" {
			return fmtErrorf("network_host is required when network output is enabled")
		}
		if c.NetworkPort <= 0 || c.NetworkPort > 65535 {
			return fmtErrorf("network_port out of range: %d", c.NetworkPort)
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}
