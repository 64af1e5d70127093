package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jhye/pistorm/internal/model"
)

// TestNewAttackCmd tests the attack command creation.
func TestNewAttackCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAttackCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "attack <ssid>" {
			t.Errorf("expected use 'attack <ssid>', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"scan-interface", "monitor-interface", "timeout", "json", "markdown", "output"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q", name)
			}
		}
	})
}

// TestOutputAttackReport tests rendering of a finished attack.
func TestOutputAttackReport(t *testing.T) {
	t.Parallel()

	finished := &model.AttackReport{
		Target:            "HomeNet",
		Phase:             model.PhaseComplete,
		Progress:          100,
		HandshakeCaptured: true,
		Result:            "hunter22",
		StartedAt:         time.Now().Add(-time.Minute),
		FinishedAt:        time.Now(),
	}

	t.Run("default writer includes the recovered key", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "report.txt")
		cmd := NewAttackCmd()
		if err := cmd.Flags().Set("output", path); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}

		if err := outputAttackReport(cmd, finished); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		for _, want := range []string{"HomeNet", "hunter22"} {
			if !strings.Contains(string(content), want) {
				t.Errorf("expected report to contain %q, got %q", want, string(content))
			}
		}
	})

	t.Run("json and markdown are mutually exclusive", func(t *testing.T) {
		t.Parallel()

		cmd := NewAttackCmd()
		for _, flag := range []string{"json", "markdown"} {
			if err := cmd.Flags().Set(flag, "true"); err != nil {
				t.Fatalf("failed to set %s: %v", flag, err)
			}
		}

		if err := outputAttackReport(cmd, finished); err == nil {
			t.Error("expected error for conflicting format flags")
		}
	})
}
