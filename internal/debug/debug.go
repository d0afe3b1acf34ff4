// Package debug provides the diagnostic log for ipmitree.
// File logging is only enabled when --debug is passed at startup; logs are
// written to ~/.ipmitree/debug.log, truncated on each launch.
//
// Reportf is the loud channel for invariant violations: it always counts
// the report, and logs it even when the rest of the log is disabled as long
// as a sink has been configured.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// LogFileName is the name of the debug log file.
	LogFileName = "debug.log"
	// LogDirName is the name of the directory containing the log file.
	LogDirName = ".ipmitree"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
	logFile *os.File

	// reportSink receives Reportf output regardless of enabled.
	reportSink *log.Logger
	reports    atomic.Int64

	// getLogPath is a function variable to allow overriding in tests.
	getLogPath = defaultGetLogPath
)

// Init initializes the debug logging system.
// If enable is false, Log and Logf become no-ops.
// If enable is true, the log file is created/truncated at ~/.ipmitree/debug.log.
func Init(enable bool) error {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	if !enable {
		logger = log.New(io.Discard, "", 0)
		return nil
	}

	logPath, err := getLogPath()
	if err != nil {
		return fmt.Errorf("determine log path: %w", err)
	}

	dir := filepath.Dir(logPath)
	//nolint:gosec // G301: User config directory needs standard permissions
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	//nolint:gosec // G304: Log path is computed from user home, not user input
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f

	logger = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	reportSink = logger
	logger.Printf("=== ipmitree debug log started at %s ===", time.Now().Format(time.RFC3339))

	return nil
}

// SetReportSink directs Reportf output to w even when debug logging is
// off. The headless runner points this at stderr. A nil w restores the
// default (the debug log, if enabled).
func SetReportSink(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		reportSink = logger
		return
	}
	reportSink = log.New(w, "ipmitree: ", log.Ltime)
}

// Close closes the debug log file if open.
// Safe to call even if logging is disabled.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	if reportSink == logger {
		reportSink = nil
	}
	logger = nil
	enabled = false
}

// Log writes a debug message if debug logging is enabled.
// Arguments are handled in the manner of fmt.Print.
func Log(v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if !enabled || logger == nil {
		return
	}
	logger.Print(v...)
}

// Logf writes a formatted debug message if debug logging is enabled.
// Arguments are handled in the manner of fmt.Printf.
func Logf(format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if !enabled || logger == nil {
		return
	}
	logger.Printf(format, v...)
}

// Reportf records a condition that indicates broken state upstream, such
// as a counter that would go negative. Every call is counted; the message
// goes to the report sink when one is configured.
func Reportf(format string, v ...any) {
	reports.Add(1)

	mu.RLock()
	defer mu.RUnlock()
	if reportSink == nil {
		return
	}
	reportSink.Printf("REPORT "+format, v...)
}

// Reports returns how many times Reportf has been called.
func Reports() int64 {
	return reports.Load()
}

// Enabled returns whether debug logging is currently enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// defaultGetLogPath returns the path to the debug log file.
func defaultGetLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, LogDirName, LogFileName), nil
}

// GetLogPath returns the path to the debug log file.
func GetLogPath() (string, error) {
	return getLogPath()
}
