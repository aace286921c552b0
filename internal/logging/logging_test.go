package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFanoutWritesToEveryHandler(t *testing.T) {
	var text, js bytes.Buffer
	logger := newFanout(
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)

	logger.With("component", "cleaner").Info("queued", "public_id", "image/a.jpg")
	logger.Warn("dropped")

	if !strings.Contains(text.String(), "component=cleaner") || !strings.Contains(text.String(), "dropped") {
		t.Fatalf("unexpected text output %q", text.String())
	}

	lines := strings.Split(strings.TrimSpace(js.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warning in the JSON sink, got %q", js.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if record["msg"] != "dropped" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewWithFileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "framevault.log")
	logger, closer := NewWithFile(slog.LevelDebug, path)

	logger.Info("server started", "addr", ":8080")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"addr":":8080"`) {
		t.Fatalf("unexpected log file content %q", data)
	}
}

func TestNewWithFileWithoutPath(t *testing.T) {
	logger, closer := NewWithFile(slog.LevelInfo, "")
	if logger == nil {
		t.Fatalf("expected a logger")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
