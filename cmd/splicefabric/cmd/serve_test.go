package cmd

import (
	"log/slog"
	"testing"
)

func TestSetupLogger_MapsLevelNames(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, c := range cases {
		logger := setupLogger(c.level)
		if !logger.Enabled(nil, c.want) {
			t.Errorf("level %q: expected handler enabled at %v", c.level, c.want)
		}
	}
}
