package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestComponentLoggerCreatedBeforeInit(t *testing.T) {
	log := ForComponent(CompMonitor)

	path := filepath.Join(t.TempDir(), "logs", "test.log")
	if err := Init(Config{File: path, Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	log.Info("poll complete", "sessions", 3)
	Shutdown()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"component":"monitor"`) {
		t.Errorf("log line missing component attr: %s", out)
	}
	if !strings.Contains(out, `"sessions":3`) {
		t.Errorf("log line missing sessions attr: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	if err := Init(Config{File: path, Level: "warn", Format: "text"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	log := ForComponent(CompDaemon)
	log.Info("dropped")
	log.Warn("kept")
	Shutdown()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestLoggerBeforeInitDiscards(t *testing.T) {
	Shutdown()
	// Must not panic.
	ForComponent(CompHook).Error("nobody listening")
	Logger().Info("nobody listening")
}
