package main

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range tests {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestKeyStatus(t *testing.T) {
	if got := keyStatus(""); !strings.Contains(got, "[MISSING]") {
		t.Errorf("keyStatus(empty) = %q", got)
	}

	got := keyStatus("sk-1234567890abcdef")
	if !strings.Contains(got, "[SET]") {
		t.Errorf("keyStatus(set) = %q", got)
	}
	if strings.Contains(got, "sk-1234567890abcdef") {
		t.Errorf("keyStatus leaked the full secret: %q", got)
	}
}

func TestRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"download", "translate", "bundle", "run", "config", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
