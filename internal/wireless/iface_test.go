package wireless

import (
	"context"
	"errors"
	"testing"
)

// TestDetectInterfaces tests wireless interface discovery via iw dev.
func TestDetectInterfaces(t *testing.T) {
	t.Parallel()

	t.Run("iw dev lists interfaces", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("iw dev", Result{ExitCode: 0, Stdout: `phy#0
	Interface wlan0
		ifindex 3
		type managed
phy#1
	Interface wlan1
		ifindex 4
		type managed
`})
		runner.on("iw dev wlan0 info", Result{ExitCode: 0, Stdout: "Interface wlan0\n\ttype managed\n"})
		runner.on("iw dev wlan1 info", Result{ExitCode: 0, Stdout: "Interface wlan1\n\ttype managed\n"})

		m := NewManager(WithRunner(runner))
		interfaces, err := m.DetectInterfaces(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(interfaces) != 2 || interfaces[0] != "wlan0" || interfaces[1] != "wlan1" {
			t.Errorf("interfaces = %v, want [wlan0 wlan1]", interfaces)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("iw dev", Result{ExitCode: 0, Stdout: ""})
		runner.on("ip link show", Result{ExitCode: 0, Stdout: "1: lo: <LOOPBACK>\n2: eth0: <BROADCAST>\n"})

		m := NewManager(WithRunner(runner))
		if _, err := m.DetectInterfaces(context.Background()); !errors.Is(err, ErrNoInterfaces) {
			t.Errorf("got %v, want ErrNoInterfaces", err)
		}
	})
}

// TestChooseInterfaces tests scan/monitor interface assignment.
func TestChooseInterfaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		available []string
		scanPref  string
		monPref   string
		wantScan  string
		wantMon   string
	}{
		{
			name:      "both preferences available",
			available: []string{"wlan0", "wlan1"},
			scanPref:  "wlan0",
			monPref:   "wlan1",
			wantScan:  "wlan0",
			wantMon:   "wlan1",
		},
		{
			name:      "monitor preference missing, second adapter used",
			available: []string{"wlan0", "wlan2"},
			scanPref:  "wlan0",
			monPref:   "wlan1",
			wantScan:  "wlan0",
			wantMon:   "wlan2",
		},
		{
			name:      "single adapter serves both roles",
			available: []string{"wlan0"},
			scanPref:  "wlan0",
			monPref:   "wlan1",
			wantScan:  "wlan0",
			wantMon:   "wlan0",
		},
		{
			name:      "scan preference missing, first adapter used",
			available: []string{"wlp2s0"},
			scanPref:  "wlan0",
			monPref:   "wlan1",
			wantScan:  "wlp2s0",
			wantMon:   "wlp2s0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			scan, mon := ChooseInterfaces(tt.available, tt.scanPref, tt.monPref)
			if scan != tt.wantScan || mon != tt.wantMon {
				t.Errorf("ChooseInterfaces() = (%q, %q), want (%q, %q)", scan, mon, tt.wantScan, tt.wantMon)
			}
		})
	}
}

// TestSetMonitorMode tests the down/set/up/verify sequence.
func TestSetMonitorMode(t *testing.T) {
	t.Parallel()

	t.Run("mode change succeeds", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("ip link show wlan1", Result{ExitCode: 0})
		runner.on("iw dev wlan1 info", Result{ExitCode: 0, Stdout: "type managed"})
		runner.on("iw dev wlan1 info", Result{ExitCode: 0, Stdout: "type monitor"})

		m := NewManager(WithRunner(runner))
		if err := m.SetMonitorMode(context.Background(), "wlan1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{
			"ip link set wlan1 down",
			"iw dev wlan1 set type monitor",
			"ip link set wlan1 up",
		} {
			if !runner.called(want) {
				t.Errorf("expected command %q to run", want)
			}
		}
	})

	t.Run("already in monitor mode is a no-op", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("ip link show wlan1", Result{ExitCode: 0})
		runner.on("iw dev wlan1 info", Result{ExitCode: 0, Stdout: "type monitor"})

		m := NewManager(WithRunner(runner))
		if err := m.SetMonitorMode(context.Background(), "wlan1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runner.called("ip link set wlan1 down") {
			t.Error("mode change should not have run")
		}
	})

	t.Run("missing interface", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("ip link show wlan9", Result{ExitCode: 1, Stderr: "Device \"wlan9\" does not exist."})

		m := NewManager(WithRunner(runner))
		if err := m.SetMonitorMode(context.Background(), "wlan9"); !errors.Is(err, ErrInterfaceNotFound) {
			t.Errorf("got %v, want ErrInterfaceNotFound", err)
		}
	})

	t.Run("verification failure", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("ip link show wlan1", Result{ExitCode: 0})
		// Still managed both before and after the change.
		runner.on("iw dev wlan1 info", Result{ExitCode: 0, Stdout: "type managed"})
		runner.on("iw dev wlan1 info", Result{ExitCode: 0, Stdout: "type managed"})

		m := NewManager(WithRunner(runner))
		if err := m.SetMonitorMode(context.Background(), "wlan1"); !errors.Is(err, ErrModeChangeFailed) {
			t.Errorf("got %v, want ErrModeChangeFailed", err)
		}
	})
}

// TestDeauth tests the deauth burst command construction.
func TestDeauth(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()

	m := NewManager(WithRunner(runner))
	if err := m.Deauth(context.Background(), "wlan1", "aa:bb:cc:dd:ee:ff", 6, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !runner.called("iw dev wlan1 set channel 6") {
		t.Error("expected channel pin before deauth")
	}
	if !runner.called("aireplay-ng -0 10 -a aa:bb:cc:dd:ee:ff wlan1") {
		t.Error("expected aireplay-ng deauth command")
	}
}
