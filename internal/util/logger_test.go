package util

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDirectLoggerReportsCallingFile(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core, baseOptions...)

	direct(base).Info("from component")
	direct(base).Named("geo").Warn("named component")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if !e.Caller.Defined {
			t.Fatalf("entry %q has no caller", e.Message)
		}
		if got := filepath.Base(e.Caller.File); got != "logger_test.go" {
			t.Errorf("entry %q caller = %s, want logger_test.go", e.Message, got)
		}
	}
	if entries[1].LoggerName != "geo" {
		t.Errorf("logger name = %q, want geo", entries[1].LoggerName)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
