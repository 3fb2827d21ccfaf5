package log

// LogAppender abstracts a log output destination (console, file, network).
// Implementations must be safe for concurrent use: a database server logs
// from many connection goroutines at once.
type LogAppender interface {
	// Write outputs one formatted log line.
	Write(buf []byte) (n int, err error)

	// Refresh forces buffered log data out. Called before critical
	// transitions such as server shutdown.
	Refresh() error

	// Close flushes and releases underlying resources.
	Close() error
}
