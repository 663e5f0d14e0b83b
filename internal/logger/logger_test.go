package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTextOutputFiltersByLevel(t *testing.T) {
	t.Cleanup(func() { defaultLogger = nil })
	var buf bytes.Buffer
	InitWithWriter("warn", "text", &buf)

	Info("hidden %d", 1)
	Warn("retry left %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info line to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] retry left 4") {
		t.Errorf("Expected warn line, got %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	t.Cleanup(func() { defaultLogger = nil })
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)

	Error("refresh failed: %s", "timeout")

	var line map[string]string
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected a JSON line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "error" {
		t.Errorf("Expected level error, got %q", line["level"])
	}
	if line["msg"] != "refresh failed: timeout" {
		t.Errorf("Unexpected message %q", line["msg"])
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	defaultLogger = nil
	// Must not panic
	Debug("x")
	Info("x")
	Warn("x")
	Error("x")
}
