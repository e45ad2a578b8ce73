package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func reset() {
	CloseAll()
	logsDir = ""
	opts = Options{}
}

func TestDisabledModeWritesNothing(t *testing.T) {
	dir := t.TempDir()
	defer reset()

	if err := Initialize(dir, Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Boot("should not appear")
	Session("neither should this")

	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Error("no logs directory should exist when debug mode is off")
	}
}

func TestDebugModeWritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	defer reset()

	if err := Initialize(dir, Options{DebugMode: true, Level: "info"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Session("login ok for %s", "a@example.com")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, "logs", date+"_session.log"))
	if err != nil {
		t.Fatalf("expected a session log file: %v", err)
	}
	if !strings.Contains(string(data), "login ok for a@example.com") {
		t.Errorf("message missing from log: %s", data)
	}
	if !strings.Contains(string(data), "[INFO]") {
		t.Errorf("level tag missing from log: %s", data)
	}
}

func TestLevelFilterPassesErrors(t *testing.T) {
	dir := t.TempDir()
	defer reset()

	if err := Initialize(dir, Options{DebugMode: true, Level: "error"}); err != nil {
		t.Fatal(err)
	}
	Sync("filtered out")
	SyncError("kept: %d", 7)
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, "logs", date+"_sync.log"))
	if err != nil {
		t.Fatalf("expected a sync log file: %v", err)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Error("info line should be filtered at error level")
	}
	if !strings.Contains(string(data), "kept: 7") {
		t.Error("error line must always be written")
	}
}

func TestDisabledCategoryIsNoOp(t *testing.T) {
	dir := t.TempDir()
	defer reset()

	if err := Initialize(dir, Options{
		DebugMode:  true,
		Categories: map[string]bool{"ui": false},
	}); err != nil {
		t.Fatal(err)
	}
	UI("suppressed")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(dir, "logs", date+"_ui.log")); !os.IsNotExist(err) {
		t.Error("disabled category must not create a file")
	}
}

func TestJSONFormat(t *testing.T) {
	dir := t.TempDir()
	defer reset()

	if err := Initialize(dir, Options{DebugMode: true, JSONFormat: true}); err != nil {
		t.Fatal(err)
	}
	WithRequestID(CategoryAPI, "req-1").Info("GET /donations")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, "logs", date+"_api.log"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"cat":"api"`, `"msg":"GET /donations"`, `"req":"req-1"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %s in %s", want, line)
		}
	}
}

func TestNoOpLoggerIsSafe(t *testing.T) {
	defer reset()
	// Never initialized: every call must be a silent no-op.
	l := Get(CategorySync)
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	StartTimer(CategoryAPI, "noop").Stop()
}
