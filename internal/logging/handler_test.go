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
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(FormatJSON, slog.LevelInfo, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("credential refreshed", "scope", "GIGACHAT_API_PERS")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not json: %v", err)
	}
	if entry["msg"] != "credential refreshed" || entry["scope"] != "GIGACHAT_API_PERS" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_TextHasNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(FormatText, slog.LevelDebug, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug("stream opened", "endpoint", "chat/completions")

	out := buf.String()
	if !strings.Contains(out, "stream opened") || !strings.Contains(out, "endpoint=chat/completions") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("output contains ANSI escapes: %q", out)
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New("xml", slog.LevelInfo, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
