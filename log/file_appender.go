package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileAppender writes log lines to a file and splits it when it grows past
// the configured size. Writes are serialized with a mutex; the appender is
// synchronous so a crash loses at most the line being written.
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	written     int64
	splitBytes  int64
}

// NewFileAppender opens (or creates) the log file at cfg.LogPath. Parent
// directories are created as needed.
func NewFileAppender(cfg *LogCfg) (*FileAppender, error) {
	if cfg == nil || cfg.LogPath == "" {
		return nil, fmt.Errorf("file appender requires a log path")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}

	splitMB := cfg.FileSplitMB
	if splitMB <= 0 {
		splitMB = 50
	}

	return &FileAppender{
		file:       f,
		path:       cfg.LogPath,
		written:    st.Size(),
		splitBytes: int64(splitMB) * 1024 * 1024,
	}, nil
}

// Write appends one log line, rotating first when the size threshold has
// been crossed.
func (fa *FileAppender) Write(buf []byte) (int, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.written+int64(len(buf)) > fa.splitBytes {
		if err := fa.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := fa.file.Write(buf)
	fa.written += int64(n)
	return n, err
}

// rotate renames the current file with a timestamp suffix and starts a new
// one. Caller holds fa.mu.
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return fmt.Errorf("close before rotate: %w", err)
	}

	rotated := fmt.Sprintf("%s.%s", fa.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(fa.path, rotated); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}

	f, err := os.OpenFile(fa.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopen log file: %w", err)
	}

	fa.file = f
	fa.written = 0
	return nil
}

// Refresh syncs the file to stable storage.
func (fa *FileAppender) Refresh() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.file.Sync()
}

// Close flushes and closes the file.
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if err := fa.file.Sync(); err != nil {
		return err
	}
	return fa.file.Close()
}
