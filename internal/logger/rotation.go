package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// defaultMaxSizeMB applies when Config.MaxSize is not set
const defaultMaxSizeMB = 100

// newFileWriter opens the log file behind a size-rotating writer. Rotated
// files older than maxAge days are removed and, with compress, gzipped.
func newFileWriter(filename string, maxSizeMB, maxAge int, compress bool) (*lumberjack.Logger, error) {
	// Created here so a bad path fails at startup, not on the first write
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file.Close()

	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}

	return &lumberjack.Logger{
		Filename:  filename,
		MaxSize:   maxSizeMB,
		MaxAge:    maxAge,
		Compress:  compress,
		LocalTime: true,
	}, nil
}
