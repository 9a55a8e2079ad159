package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	logger.Debug().Msg("hidden")
	logger.Warn().Str("request_id", "waf_1_abcd").Msg("audit write failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &parsed); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if parsed["level"] != "warn" || parsed["request_id"] != "waf_1_abcd" || parsed["service"] != "safego-waf" {
		t.Fatalf("unexpected fields %v", parsed)
	}
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "console"}, &buf)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	logger.Debug().Msg("store opened")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "store opened") {
		t.Fatalf("message missing: %q", buf.String())
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
