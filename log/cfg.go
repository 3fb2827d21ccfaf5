package log

import (
	"fmt"
)

// LogCfg configures the Varuna server logger. The struct is loaded through
// the config manager and supports hot-reload of the log level.
type LogCfg struct {
	// LogPath is the target file for file-based logging.
	LogPath string `mapstructure:"path"`

	// LogLevel is the minimum level that reaches the appenders.
	LogLevel Level `mapstructure:"level"`

	// FileSplitMB is the rotation threshold for the file appender.
	FileSplitMB int `mapstructure:"splitMB"`

	// CallerSkip is the number of stack frames skipped when capturing
	// caller information. Useful for wrappers around the logger.
	CallerSkip int `mapstructure:"callerSkip"`

	// FileAppender enables file output.
	FileAppender bool `mapstructure:"fileAppender"`

	// ConsoleAppender enables stdout output.
	ConsoleAppender bool `mapstructure:"consoleAppender"`

	// EnabledCallerInfo adds file/function/line to every entry.
	EnabledCallerInfo bool `mapstructure:"enabledCallerInfo"`
}

// GetName returns the configuration section name.
func (cfg *LogCfg) GetName() string {
	return "logger"
}

// Validate checks the configuration for consistency.
func (cfg *LogCfg) Validate() error {
	if cfg.LogLevel < TraceLevel || cfg.LogLevel > FatalLevel {
		return fmt.Errorf("invalid log level: %d, must be between %d (Trace) and %d (Fatal)",
			cfg.LogLevel, TraceLevel, FatalLevel)
	}

	if cfg.FileSplitMB < 1 || cfg.FileSplitMB > 1024 {
		return fmt.Errorf("file split size must be between 1MB and 1024MB, got %dMB", cfg.FileSplitMB)
	}

	if cfg.CallerSkip < 0 {
		return fmt.Errorf("caller skip must be non-negative, got %d", cfg.CallerSkip)
	}

	if cfg.FileAppender && cfg.LogPath == "" {
		return fmt.Errorf("log path cannot be empty when file appender is enabled")
	}

	if !cfg.FileAppender && !cfg.ConsoleAppender {
		return fmt.Errorf("at least one appender (file or console) must be enabled")
	}

	return nil
}

var _defaultCfg = &LogCfg{
	LogPath:           "./varuna.log",
	LogLevel:          DebugLevel,
	FileSplitMB:       50,
	CallerSkip:        1,
	ConsoleAppender:   true,
	EnabledCallerInfo: true,
}

func getDefaultCfg() *LogCfg {
	return _defaultCfg
}
