package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firestige.xyz/rawhttpd/internal/config"
)

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if err != nil {
				t.Errorf("parseLevel(%q) returned error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "trace", "fatal", ""} {
		t.Run(input, func(t *testing.T) {
			if _, err := parseLevel(input); err == nil {
				t.Errorf("parseLevel(%q) should return error, got nil", input)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	err := InitWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("info message")
	slog.Warn("frame dropped", "reason", "checksum_mismatch", "len", 60)

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered out at warn level")
	}
	for _, want := range []string{`"msg":"frame dropped"`, `"reason":"checksum_mismatch"`, `"len":60`, `"service":"rawhttpd"`} {
		if !strings.Contains(output, want) {
			t.Errorf("JSON output should contain %s, got %s", want, output)
		}
	}
}

func TestInitText(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWriter(config.LogConfig{Level: "debug", Format: "text"}, &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Debug("segment sent", "intent", "synack")

	output := buf.String()
	if !strings.Contains(output, "segment sent") || !strings.Contains(output, "intent=synack") {
		t.Errorf("Unexpected text output: %s", output)
	}
}

func TestInitWithFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	cfg := config.LogConfig{
		Level:  "debug",
		Format: "text",
		Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{
				Enabled: true,
				Path:    logPath,
				Rotation: config.RotationConfig{
					MaxSizeMB:  10,
					MaxBackups: 3,
					MaxAgeDays: 7,
					Compress:   true,
				},
			},
		},
	}

	var console bytes.Buffer
	if err := InitWriter(cfg, &console); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	slog.Info("test message", "key", "value")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Log file was not created at %s: %v", logPath, err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("Log file missing record: %s", data)
	}
	if !strings.Contains(console.String(), "test message") {
		t.Error("Console output missing record")
	}
}

func TestInitWithInvalidLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "invalid", Format: "json"})
	if err == nil {
		t.Fatal("Expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("Expected error about invalid log level, got: %v", err)
	}
}

func TestInitWithInvalidFormat(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", Format: "xml"})
	if err == nil {
		t.Fatal("Expected error for invalid log format, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported log format") {
		t.Errorf("Expected error about unsupported format, got: %v", err)
	}
}

func TestInitWithMissingFilePath(t *testing.T) {
	cfg := config.LogConfig{
		Level:  "info",
		Format: "json",
		Outputs: config.LogOutputsConfig{
			File: config.FileOutputConfig{Enabled: true},
		},
	}

	err := Init(cfg)
	if err == nil {
		t.Fatal("Expected error for missing file path, got nil")
	}
	if !strings.Contains(err.Error(), "path") {
		t.Errorf("Expected error about missing path, got: %v", err)
	}
}

func TestCloseWithoutFile(t *testing.T) {
	if err := InitWriter(config.LogConfig{Level: "info", Format: "json"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := Close(); err != nil {
		t.Errorf("Close without file output should succeed, got %v", err)
	}
}
