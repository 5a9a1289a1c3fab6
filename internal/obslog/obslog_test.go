package obslog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "debug", Console: true, Format: "json", ConsoleTo: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("move resolved", zap.String("source", "llm"))
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(buf.String(), `"source":"llm"`) || !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestNewFileAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "grokchess.log")
	logger, closer, err := New(Options{Level: "warn", ToFile: true, File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(b), "dropped") || !strings.Contains(string(b), "WARN | ") {
		t.Fatalf("unexpected file content: %s", b)
	}
}

func TestInitInstallsGlobal(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Init(Options{Console: true, ConsoleTo: &buf})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = closer() })
	if L() != logger {
		t.Fatalf("global logger not installed")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
