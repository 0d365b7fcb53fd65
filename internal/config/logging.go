package config

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultLogFileName = ".pxve-members.log"

// Logger is the global zerolog logger instance.
//
//nolint:gochecknoglobals // application-wide structured logging
var Logger zerolog.Logger

var (
	logFileHandle *os.File
	logMu         sync.RWMutex
)

// InitLogger configures Logger. level falls back to info when it does not
// parse. console adds a human-readable stderr writer; it must be false while
// the TUI owns the terminal. file, when non-empty, is opened in append mode.
func InitLogger(level, file string, console bool) error {
	logMu.Lock()
	defer logMu.Unlock()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	closeLogFileLocked()

	var writers []io.Writer
	if console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		logFileHandle = f
		writers = append(writers, f)
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return nil
}

// DefaultLogFile is the log file used by the TUI when none is configured.
func DefaultLogFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultLogFileName
	}
	return filepath.Join(home, defaultLogFileName)
}

// GetLogger returns the global logger instance.
func GetLogger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return Logger
}

// CloseLogFile closes the current log file, if any, and stops file output.
func CloseLogFile() {
	logMu.Lock()
	defer logMu.Unlock()
	closeLogFileLocked()
}

func closeLogFileLocked() {
	if logFileHandle == nil {
		return
	}
	_ = logFileHandle.Close()
	logFileHandle = nil
	Logger = zerolog.New(io.Discard).Level(Logger.GetLevel())
}

//nolint:gochecknoinits // a logger must exist before configuration is loaded
func init() {
	_ = InitLogger("info", "", true)
}
