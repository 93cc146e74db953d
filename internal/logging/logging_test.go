package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelInfo, false)

	Component("importer").Info("pass completed", "pass", "tiles")

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithDataset(ctx, "RC1")
	ctx = ContextWithSection(ctx, 691)
	WithContext(ctx).Info("section imported")

	out := buf.String()
	for _, want := range []string{"component=importer", "pass=tiles", "run_id=run-1", "dataset=RC1", "section=691"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.log")
	closer := InitFile(FileConfig{Path: path, MaxSizeMB: 1, MaxAgeDays: 1}, slog.LevelInfo, true)
	Component("export").Info("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Restore stdout logging for other tests.
	Init(slog.LevelInfo, false)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"export"`) || !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("unexpected log file content:\n%s", data)
	}
}
