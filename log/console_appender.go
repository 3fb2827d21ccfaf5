package log

import (
	"os"
)

// ConsoleAppender writes log lines straight to stdout without buffering.
// Suited to development runs and containerized deployments where a collector
// reads the process output.
type ConsoleAppender struct {
}

// NewConsoleAppender returns a stateless console appender.
func NewConsoleAppender() *ConsoleAppender {
	return &ConsoleAppender{}
}

// Write writes the line to stdout.
func (ca *ConsoleAppender) Write(buf []byte) (int, error) {
	return os.Stdout.Write(buf)
}

// Refresh is a no-op; writes are unbuffered.
func (ca *ConsoleAppender) Refresh() error {
	return nil
}

// Close is a no-op; there is nothing to release.
func (ca *ConsoleAppender) Close() error {
	return nil
}
