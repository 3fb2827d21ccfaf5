package log

import "strings"

// Level defines the logging severity levels used across the Varuna database
// server. Levels are ordered; higher values are more severe and pass stricter
// output filtering.
type Level int8

const (
	// TraceLevel carries very detailed diagnostics such as per-chunk framing
	// decisions. Normally disabled outside of debugging sessions.
	TraceLevel Level = iota + 1

	// DebugLevel carries development-time diagnostics.
	DebugLevel

	// InfoLevel records normal operation: lifecycle events, configuration
	// changes, listener start/stop.
	InfoLevel

	// WarnLevel records recoverable problems such as protocol anomalies.
	WarnLevel

	// ErrorLevel records failed operations that need attention.
	ErrorLevel

	// FatalLevel records unrecoverable conditions such as resource
	// exhaustion.
	FatalLevel
)

// String returns the uppercase name of the level.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level, case-insensitively.
// Unrecognized input falls back to InfoLevel so that a bad configuration
// value never silences logging entirely.
func ParseLevel(levelStr string) Level {
	switch strings.ToUpper(levelStr) {
	case "TRACE":
		return TraceLevel
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	}
	return InfoLevel
}
