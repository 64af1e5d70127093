package main

import (
	"testing"
)

// TestNewListenCmd tests the listen command creation.
func TestNewListenCmd(t *testing.T) {
	t.Parallel()

	cmd := NewListenCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "listen" {
			t.Errorf("expected use 'listen', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"incoming", "results", "wordlist-dir", "orchestrator", "api-key", "hashcat"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q", name)
			}
		}
	})
}

// TestBuildListenConfig tests listen flag precedence.
func TestBuildListenConfig(t *testing.T) {
	t.Parallel()

	cmd := NewListenCmd()
	cmd.Flags().String("config", "", "")
	cmd.Flags().Bool("verbose", false, "")
	for flag, value := range map[string]string{
		"incoming":     "/srv/in",
		"results":      "/srv/out",
		"orchestrator": "http://pi.local:5000",
	} {
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("failed to set %s: %v", flag, err)
		}
	}

	cfg, err := buildListenConfig(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listener.IncomingDir != "/srv/in" {
		t.Errorf("IncomingDir = %q, want /srv/in", cfg.Listener.IncomingDir)
	}
	if cfg.Listener.ResultsDir != "/srv/out" {
		t.Errorf("ResultsDir = %q, want /srv/out", cfg.Listener.ResultsDir)
	}
	if cfg.Listener.OrchestratorURL != "http://pi.local:5000" {
		t.Errorf("OrchestratorURL = %q", cfg.Listener.OrchestratorURL)
	}
	// Defaults survive when no flag or file overrides them.
	if cfg.Listener.HashMode != 22000 {
		t.Errorf("HashMode = %d, want 22000", cfg.Listener.HashMode)
	}
}
