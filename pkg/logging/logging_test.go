package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("warn"); err != nil {
		t.Fatalf("Validate(warn): unexpected error: %v", err)
	}
	err := Validate("verbose")
	if err == nil {
		t.Fatal("Validate(verbose): expected error")
	}
	if !strings.Contains(err.Error(), LevelNames()) {
		t.Errorf("error %q should list valid levels", err)
	}
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	slog.New(h).With("component", "broker").Info("session joined", "user", "alice")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "session joined" || rec["user"] != "alice" || rec["component"] != "broker" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewHandlerRejectsUnknownFormat(t *testing.T) {
	if _, err := NewHandler(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for xml format")
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	slog.New(h).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %q", buf.String())
	}
}
