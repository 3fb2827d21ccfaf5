package log

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// SrvLogger is the server-wide structured logger. It is safe for concurrent
// use, reuses LogEvent objects through a sync.Pool, and supports changing the
// minimum level at runtime through configuration reload.
//
// Example:
//
//	logger := NewLogger(&LogCfg{LogLevel: InfoLevel, ConsoleAppender: true})
//	logger.Info().Str("addr", addr).Int("conns", 42).Msg("listener started")
type SrvLogger struct {
	appenders         []LogAppender
	minLevel          Level
	callerSkip        int
	eventPool         *sync.Pool
	callerCache       sync.Map
	enabledCallerInfo bool
}

// NewLogger creates a SrvLogger from cfg. A nil cfg selects the package
// defaults (console output at debug level).
func NewLogger(cfg *LogCfg) *SrvLogger {
	if cfg == nil {
		cfg = getDefaultCfg()
	}

	logger := &SrvLogger{
		minLevel:          cfg.LogLevel,
		callerSkip:        cfg.CallerSkip,
		enabledCallerInfo: cfg.EnabledCallerInfo,
	}

	logger.eventPool = &sync.Pool{
		New: func() any {
			return newEvent(logger)
		},
	}

	if cfg.FileAppender {
		if fa, err := NewFileAppender(cfg); err == nil {
			logger.AddAppender(fa)
		}
	}

	if cfg.ConsoleAppender {
		logger.AddAppender(NewConsoleAppender())
	}

	return logger
}

// SetLevel changes the minimum level. Safe to call while other goroutines
// are logging.
func (x *SrvLogger) SetLevel(level Level) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&x.minLevel)), uint32(level))
}

func (x *SrvLogger) checkLevel(level Level) bool {
	currentLevel := Level(atomic.LoadUint32((*uint32)(unsafe.Pointer(&x.minLevel))))
	return currentLevel <= level
}

// AddAppender registers an additional output destination. Every log entry is
// written to all registered appenders.
func (x *SrvLogger) AddAppender(appender LogAppender) {
	x.appenders = append(x.appenders, appender)
}

// GetAppender returns the registered appenders.
func (x *SrvLogger) GetAppender() []LogAppender {
	return x.appenders
}

// Refresh flushes all appenders.
func (x *SrvLogger) Refresh() {
	for _, appender := range x.appenders {
		_ = appender.Refresh()
	}
}

// Close flushes and closes all appenders.
func (x *SrvLogger) Close() {
	for _, appender := range x.appenders {
		_ = appender.Close()
	}
}

// IgnoreCheckLevel reports whether level filtering is bypassed. Always false
// for SrvLogger.
func (x *SrvLogger) IgnoreCheckLevel() bool {
	return false
}

func (x *SrvLogger) newEvent() *LogEvent {
	e := x.eventPool.Get().(*LogEvent)
	e.Reset()
	return e
}

// OnEventEnd writes the finished event to every appender and returns it to
// the pool. Fatal entries panic after being written.
func (x *SrvLogger) OnEventEnd(e *LogEvent) {
	for _, appender := range x.appenders {
		_, _ = appender.Write(e.buf.Bytes())
	}

	if e.level == FatalLevel {
		panic("fatal log event")
	}

	x.eventPool.Put(e)
}

// Trace creates a trace-level event, or returns nil when filtered.
func (x *SrvLogger) Trace() *LogEvent {
	return x.log(TraceLevel)
}

// Debug creates a debug-level event, or returns nil when filtered.
func (x *SrvLogger) Debug() *LogEvent {
	return x.log(DebugLevel)
}

// Info creates an info-level event, or returns nil when filtered.
func (x *SrvLogger) Info() *LogEvent {
	return x.log(InfoLevel)
}

// Warn creates a warn-level event, or returns nil when filtered.
func (x *SrvLogger) Warn() *LogEvent {
	return x.log(WarnLevel)
}

// Error creates an error-level event, or returns nil when filtered.
func (x *SrvLogger) Error() *LogEvent {
	return x.log(ErrorLevel)
}

// Fatal creates a fatal-level event; the process panics once it is written.
func (x *SrvLogger) Fatal() *LogEvent {
	return x.log(FatalLevel)
}

// getCallerInfo resolves the call site three frames up (plus configured
// skip), caching by program counter since a given call site never moves.
func (x *SrvLogger) getCallerInfo() *callerInfo {
	pc, file, line, ok := runtime.Caller(3 + x.callerSkip)
	if !ok {
		return _unknownCallerInfo
	}

	if cached, found := x.callerCache.Load(pc); found {
		return cached.(*callerInfo)
	}

	funcName := runtime.FuncForPC(pc).Name()
	var function string
	if dotIdx := strings.LastIndexByte(funcName, '.'); dotIdx != -1 {
		function = funcName[dotIdx+1:]
	} else {
		function = funcName
	}

	// Keep only the last two path components of the file.
	if len(file) > 0 {
		lastSlash := strings.LastIndexByte(file, '/')
		if lastSlash > 0 {
			secondLastSlash := strings.LastIndexByte(file[:lastSlash], '/')
			if secondLastSlash >= 0 {
				file = file[secondLastSlash+1:]
			}
		}
	}

	c := newCallerInfo(file, function, line)
	x.callerCache.Store(pc, c)

	return c
}

// log stamps a pooled event with the common fields and returns it, or nil
// when the level is filtered out.
func (x *SrvLogger) log(level Level) *LogEvent {
	if !x.IgnoreCheckLevel() && !x.checkLevel(level) {
		return nil
	}

	e := x.newEvent()
	e.level = level

	t := time.Now()
	e.Time("time", &t)
	e.Str("level", level.String())

	if x.enabledCallerInfo {
		info := x.getCallerInfo()
		e.Str("caller", info.String())
	}

	return e
}
