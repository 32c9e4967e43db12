// Package logger provides the application's structured file logger.
// The terminal belongs to the UI while it runs, so logs only ever go to a
// file. Until Init is called every record is discarded.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFileName is the log file created in the OS temp dir when no path is given
const DefaultFileName = "serialtool-debug.log"

var (
	mu       sync.Mutex
	levelVar = new(slog.LevelVar)
	current  = slog.New(slog.DiscardHandler)
	logFile  *os.File
	logPath  string
)

// DefaultPath returns the default log file location
func DefaultPath() string {
	return filepath.Join(os.TempDir(), DefaultFileName)
}

// Init opens path for appending and routes all logging there.
// An empty path selects DefaultPath. Calling Init again switches files.
func Init(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	mu.Lock()
	defer mu.Unlock()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logPath = path
	current = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}))
	current.Info("logger initialized", "path", path)
	return nil
}

// SetDebug switches between debug and info level
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Get returns the current logger
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Path returns the active log file path, or "" before Init
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Close flushes and closes the log file and goes back to discarding
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	current = slog.New(slog.DiscardHandler)
	logPath = ""
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
