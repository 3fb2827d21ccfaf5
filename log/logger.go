package log

// Logger is the interface satisfied by the loggers in this package.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	Fatal() *LogEvent
	IgnoreCheckLevel() bool
	GetAppender() []LogAppender
	AddAppender(appender LogAppender)
	OnEventEnd(e *LogEvent)
}

var _defaultLogger *SrvLogger

func init() {
	_defaultLogger = NewLogger(nil)
}

// AddAppender adds an appender to the package-level default logger.
func AddAppender(appender LogAppender) {
	_defaultLogger.AddAppender(appender)
}

// Refresh flushes the default logger's appenders.
func Refresh() {
	_defaultLogger.Refresh()
}

// SetDefaultLogger replaces the default logger.
func SetDefaultLogger(logger *SrvLogger) {
	_defaultLogger = logger
}

// Initialize configures the default logger from cfg.
func Initialize(cfg *LogCfg) error {
	if cfg == nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	SetDefaultLogger(NewLogger(cfg))
	return nil
}

// Trace creates a trace-level event on the default logger.
func Trace() *LogEvent {
	return _defaultLogger.Trace()
}

// Debug creates a debug-level event on the default logger.
func Debug() *LogEvent {
	return _defaultLogger.Debug()
}

// Info creates an info-level event on the default logger.
func Info() *LogEvent {
	return _defaultLogger.Info()
}

// Warn creates a warn-level event on the default logger.
func Warn() *LogEvent {
	return _defaultLogger.Warn()
}

// Error creates an error-level event on the default logger.
func Error() *LogEvent {
	return _defaultLogger.Error()
}

// Fatal creates a fatal-level event on the default logger.
func Fatal() *LogEvent {
	return _defaultLogger.Fatal()
}
