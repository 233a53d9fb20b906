package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileLogger appends timestamped lines to a file. The daemon uses it so that
// runs triggered while nobody watches the console can be diagnosed later.
type FileLogger struct {
	*StandardLogger
	once sync.Once
	f    *os.File
}

// NewFileLogger opens (or creates) path for appending.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileLogger{
		StandardLogger: NewStandardLogger(log.New(f, "", log.LstdFlags)),
		f:              f,
	}, nil
}

// Close closes the underlying file once.
func (l *FileLogger) Close() error {
	var err error
	l.once.Do(func() {
		err = l.f.Close()
	})
	return err
}

var _ Logger = (*FileLogger)(nil)
