package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Global logger instance and synchronization
var (
	logger   *logrus.Logger
	loggerMu sync.RWMutex
	logFile  *os.File
)

// LogLevel represents logging verbosity.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Config holds logger configuration.
type Config struct {
	Level      LogLevel
	OutputPath string // Empty for stderr, or file path
	Format     string // "json" or "text"
}

// Init initializes the global logger with the given configuration.
// Call once at application startup; later calls reconfigure the
// logger and close any previously opened log file.
func Init(config Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	var writer io.Writer = os.Stderr
	var newFile *os.File
	if config.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		newFile = f
		writer = f
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = newFile

	l := logrus.New()
	l.SetOutput(writer)
	l.SetLevel(parseLevel(config.Level))
	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger = l
	return nil
}

func parseLevel(level LogLevel) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Get returns the global logger, initializing a default one if Init
// was never called.
func Get() *logrus.Logger {
	loggerMu.RLock()
	if logger != nil {
		defer loggerMu.RUnlock()
		return logger
	}
	loggerMu.RUnlock()

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// ForComponent returns a logger entry tagged with the originating
// component, e.g. "pager" or "btree".
func ForComponent(component string) *logrus.Entry {
	return Get().WithField("component", component)
}

// Close flushes and closes the log file if one was opened.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}
