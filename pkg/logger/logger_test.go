package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetOutput_Levels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, false)
	defer Close()

	Info("fetched %d widgets", 12)
	Debug("hidden %s", "detail")
	Warn("null child %d/%d", 1, 3)

	out := buf.String()
	if !strings.Contains(out, "fetched 12 widgets") {
		t.Errorf("missing info line in %q", out)
	}
	if strings.Contains(out, "hidden detail") {
		t.Errorf("debug line written without verbose: %q", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("missing WARN level in %q", out)
	}
}

func TestSetOutput_Verbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, true)
	defer Close()

	Debug("visible %s", "detail")
	if !strings.Contains(buf.String(), "visible detail") {
		t.Errorf("debug line missing in verbose mode: %q", buf.String())
	}
}

func TestInit_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "droidscan.log")
	if err := Init(path, false); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Error("adb failed: %v", "exit 1")
	if GetWriter() == nil {
		t.Error("GetWriter() returned nil")
	}
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "adb failed: exit 1") {
		t.Errorf("log file = %q, want error line", data)
	}
}

func TestInit_BadPath(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "missing", "x.log"), false); err == nil {
		t.Error("expected error for unwritable path")
	}
}
