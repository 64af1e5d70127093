package wireless

import (
	"context"
	"testing"

	"github.com/jhye/pistorm/internal/model"
)

// iwScanOutput is a trimmed real "iw dev wlan0 scan" transcript.
const iwScanOutput = `BSS aa:bb:cc:dd:ee:ff(on wlan0)
	freq: 2437
	signal: -45.00 dBm
	SSID: HomeNet
	RSN:	 * Version: 1
BSS 11:22:33:44:55:66(on wlan0)
	freq: 2412
	signal: -72.00 dBm
	SSID: CoffeeShop
BSS 22:33:44:55:66:77(on wlan0)
	freq: 5180
	signal: -60.00 dBm
	SSID: HomeNet
	RSN:	 * Version: 1
BSS 99:88:77:66:55:44(on wlan0)
	freq: 2462
	signal: -80.00 dBm
	SSID:
`

// TestParseIWScan tests iw scan output parsing.
func TestParseIWScan(t *testing.T) {
	t.Parallel()

	nets := ParseIWScan(iwScanOutput)

	if len(nets) != 3 {
		t.Fatalf("parsed %d networks, want 3 (hidden SSID dropped)", len(nets))
	}

	first := nets[0]
	if first.SSID != "HomeNet" || first.BSSID != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("unexpected first network: %+v", first)
	}
	if first.Signal != -45 {
		t.Errorf("signal = %d, want -45", first.Signal)
	}
	if first.Channel != 6 {
		t.Errorf("channel = %d, want 6 (freq 2437)", first.Channel)
	}
	if first.Encryption != model.EncryptionWPA {
		t.Errorf("encryption = %q, want WPA", first.Encryption)
	}

	// CoffeeShop advertises no RSN element.
	if nets[1].Encryption != model.EncryptionOpen {
		t.Errorf("open network classified as %q", nets[1].Encryption)
	}
}

// TestParseIWScanDedup tests that scan plus dedup keeps the strongest BSS per SSID.
func TestParseIWScanDedup(t *testing.T) {
	t.Parallel()

	nets := model.DedupNetworks(ParseIWScan(iwScanOutput))

	if len(nets) != 2 {
		t.Fatalf("deduped to %d networks, want 2", len(nets))
	}
	if nets[0].SSID != "HomeNet" || nets[0].Signal != -45 {
		t.Errorf("expected strongest HomeNet BSS first, got %+v", nets[0])
	}
}

// TestFrequencyToChannel tests MHz to channel conversion.
func TestFrequencyToChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mhz  float64
		want int
	}{
		{2412, 1},
		{2437, 6},
		{2462, 11},
		{2484, 14},
		{5180, 36},
		{5745, 149},
		{1000, 0},
		{7000, 0},
	}

	for _, tt := range tests {
		if got := FrequencyToChannel(tt.mhz); got != tt.want {
			t.Errorf("FrequencyToChannel(%v) = %d, want %d", tt.mhz, got, tt.want)
		}
	}
}

// TestManagerScan tests scanning through the runner.
func TestManagerScan(t *testing.T) {
	t.Parallel()

	t.Run("successful scan", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("iw dev wlan0 scan", Result{ExitCode: 0, Stdout: iwScanOutput})

		m := NewManager(WithRunner(runner))
		nets, err := m.Scan(context.Background(), "wlan0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(nets) != 2 {
			t.Errorf("got %d networks, want 2", len(nets))
		}
	})

	t.Run("non-busy failure does not retry", func(t *testing.T) {
		t.Parallel()

		runner := newFakeRunner()
		runner.on("iw dev wlan0 scan", Result{ExitCode: 1, Stderr: "Operation not permitted"})

		m := NewManager(WithRunner(runner))
		if _, err := m.Scan(context.Background(), "wlan0"); err == nil {
			t.Error("expected scan error")
		}
		if len(runner.calls) != 1 {
			t.Errorf("scan ran %d times, want 1", len(runner.calls))
		}
	})
}

// TestLocateTarget tests BSSID and channel lookup for an SSID.
func TestLocateTarget(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.on("iw dev wlan0 scan", Result{ExitCode: 0, Stdout: iwScanOutput})
	runner.on("iw dev wlan0 scan", Result{ExitCode: 0, Stdout: iwScanOutput})

	m := NewManager(WithRunner(runner))

	bssid, channel, err := m.LocateTarget(context.Background(), "wlan0", "CoffeeShop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bssid != "11:22:33:44:55:66" {
		t.Errorf("bssid = %q, want 11:22:33:44:55:66", bssid)
	}
	if channel != 1 {
		t.Errorf("channel = %d, want 1", channel)
	}

	// An absent SSID is not an error; the attack falls back to
	// passive capture.
	bssid, _, err = m.LocateTarget(context.Background(), "wlan0", "NoSuchNet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bssid != "" {
		t.Errorf("expected empty bssid for unknown ssid, got %q", bssid)
	}
}
