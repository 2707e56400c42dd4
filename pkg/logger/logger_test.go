package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevelFiltering(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	var buf bytes.Buffer
	Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	SetLogLevel(WARN)
	Info("info message should be filtered")
	Warn("warn message should appear")
	Error("error message should appear")

	output := buf.String()
	if strings.Contains(output, "info message should be filtered") {
		t.Fatalf("info message was logged at WARN level:\n%s", output)
	}
	if !strings.Contains(output, "warn message should appear") {
		t.Fatalf("warn message was not logged:\n%s", output)
	}
	if !strings.Contains(output, "error message should appear") {
		t.Fatalf("error message was not logged:\n%s", output)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		" INFO ":  INFO,
		"warning": WARN,
		"error":   ERROR,
	}
	for input, want := range cases {
		got, err := ParseLogLevel(input)
		if err != nil {
			t.Fatalf("ParseLogLevel(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestConfigureWritesToFile(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	path := filepath.Join(t.TempDir(), "logs", "tutor.log")
	if err := Configure(Options{Level: "debug", File: path}); err != nil {
		t.Fatalf("Configure returned error: %v", err)
	}
	Debug("written to file", "key", "value")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("expected log line in file, got %q", string(data))
	}
}

func TestConfigureReportsBadLevel(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	if err := Configure(Options{Level: "chatty"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
	if Logger == nil {
		t.Fatal("expected logger to remain usable")
	}
}

func TestConfigureJSONFormat(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	path := filepath.Join(t.TempDir(), "tutor.log")
	if err := Configure(Options{Level: "info", File: path, Format: FormatJSON}); err != nil {
		t.Fatalf("Configure returned error: %v", err)
	}
	Info("json line", "user_id", 42)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "{") || !strings.Contains(line, `"msg":"json line"`) || !strings.Contains(line, `"user_id":42`) {
		t.Fatalf("expected a JSON record, got %q", line)
	}
}

func TestConfigureReportsBadFormat(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	if err := Configure(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if Logger == nil {
		t.Fatal("expected logger to remain usable")
	}
}
