package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// useTempLog points the log at a temp directory for the duration of t.
func useTempLog(t *testing.T) string {
	t.Helper()
	resetForTest()

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, LogDirName, LogFileName)
	origGetLogPath := getLogPath
	getLogPath = func() (string, error) {
		return logPath, nil
	}
	t.Cleanup(func() {
		getLogPath = origGetLogPath
		Close()
		resetForTest()
	})
	return logPath
}

func TestInitDisabledIsNoop(t *testing.T) {
	resetForTest()

	if err := Init(false); err != nil {
		t.Fatalf("Init(false) failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("Enabled() should return false when initialized with false")
	}

	Log("scheduler step")
	Logf("examined %d nodes", 3)
}

func TestInitEnabledWritesLog(t *testing.T) {
	logPath := useTempLog(t)

	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	if !Enabled() {
		t.Fatalf("Enabled() should return true when initialized with true")
	}

	Log("refresh failed")
	Logf("node %s examined=%d", "sensor-1", 42)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"debug log started", "refresh failed", "node sensor-1 examined=42"} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("log file missing %q:\n%s", want, content)
		}
	}
}

func TestInitTruncatesExistingLog(t *testing.T) {
	logPath := useTempLog(t)

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("stale content from last launch\n"), 0600); err != nil {
		t.Fatalf("write stale log: %v", err)
	}

	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "stale content") {
		t.Fatalf("log file should have been truncated")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	useTempLog(t)

	if err := Init(true); err != nil {
		t.Fatalf("Init(true) failed: %v", err)
	}
	Close()
	Close()
	if Enabled() {
		t.Fatalf("expected logging disabled after Close")
	}
	Logf("after close %d", 1)
}

func TestReportfCountsAndWritesToSink(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	var buf bytes.Buffer
	SetReportSink(&buf)

	before := Reports()
	Reportf("counter for %s would go negative", "dom-1")
	Reportf("second report")

	if got := Reports() - before; got != 2 {
		t.Fatalf("expected 2 reports, got %d", got)
	}
	if !strings.Contains(buf.String(), "REPORT counter for dom-1 would go negative") {
		t.Fatalf("expected report in sink, got %q", buf.String())
	}
}

func TestReportfWithoutSinkStillCounts(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	before := Reports()
	Reportf("nobody listening")
	if Reports() != before+1 {
		t.Fatalf("expected report to be counted without a sink")
	}
}

func TestGetLogPathSuffix(t *testing.T) {
	path, err := GetLogPath()
	if err != nil {
		t.Fatalf("GetLogPath() failed: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join(LogDirName, LogFileName)) {
		t.Fatalf("GetLogPath() = %q, want suffix %q", path, filepath.Join(LogDirName, LogFileName))
	}
}

// resetForTest resets the package state for testing.
func resetForTest() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	enabled = false
	logger = nil
	reportSink = nil
}
