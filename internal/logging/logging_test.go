package logging

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "voipcheck.log")

	logger, err := New(Options{Level: "info", File: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug().Msg("hidden")
	logger.Info().Str("line", "1").Str("hook", "on_hook").Msg("line status")
	logger.Warn().Str("url", "https://hc-ping.com/x").Msg("heartbeat not delivered")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines (debug filtered), got %d: %v", len(lines), lines)
	}

	first := lines[0]
	if got := gjson.Get(first, "level").String(); got != "info" {
		t.Errorf("Expected level info, got %q", got)
	}
	if got := gjson.Get(first, "hook").String(); got != "on_hook" {
		t.Errorf("Expected hook field, got %q", got)
	}
	if !gjson.Get(first, "time").Exists() {
		t.Error("Expected a timestamp")
	}
	if got := gjson.Get(lines[1], "level").String(); got != "warn" {
		t.Errorf("Expected level warn, got %q", got)
	}
}

func TestConsoleMirror(t *testing.T) {
	var stderr bytes.Buffer
	logger, err := New(Options{Level: "debug", Console: true, Stderr: &stderr})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Close()

	logger.Debug().Msg("starting browser")
	if !strings.Contains(stderr.String(), "starting browser") {
		t.Errorf("Expected console output, got %q", stderr.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"DEBUG":    zerolog.DebugLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"critical": zerolog.FatalLevel,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
