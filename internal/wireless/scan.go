package wireless

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhye/pistorm/internal/model"
)

// Scan errors.
var (
	// ErrScanFailed is returned when iw scan fails after all retries.
	ErrScanFailed = errors.New("network scan failed")
)

const (
	// scanRetries is how often a busy scan is retried. The scan device
	// is shared with wpa_supplicant on a stock Pi, so EBUSY is routine.
	scanRetries = 3

	// scanRetryDelay is the wait between busy retries.
	scanRetryDelay = 5 * time.Second
)

// Scan runs "iw dev <iface> scan" and parses the result into networks,
// deduplicated by SSID keeping the strongest signal.
func (m *Manager) Scan(ctx context.Context, iface string) ([]model.Network, error) {
	out, err := m.rawScan(ctx, iface)
	if err != nil {
		return nil, err
	}
	return model.DedupNetworks(ParseIWScan(out)), nil
}

// rawScan runs iw scan with busy retries and returns its raw output.
func (m *Manager) rawScan(ctx context.Context, iface string) (string, error) {
	var lastErr string
	for attempt := 1; attempt <= scanRetries; attempt++ {
		res, err := m.runner.Run(ctx, "iw", "dev", iface, "scan")
		if err != nil {
			return "", err
		}
		if res.ExitCode == 0 {
			return res.Stdout, nil
		}

		lastErr = strings.TrimSpace(res.Stderr)
		if !strings.Contains(res.Stderr, "Device or resource busy") {
			break
		}
		m.logger.Warn("scan device busy, retrying", "interface", iface, "attempt", attempt)
		select {
		case <-time.After(scanRetryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %s", ErrScanFailed, lastErr)
}

// ParseIWScan parses "iw dev <iface> scan" output. Hidden networks
// (empty SSID) are dropped. Encryption defaults to Open and is upgraded
// when the BSS block advertises RSN/WPA or WEP.
func ParseIWScan(text string) []model.Network {
	var nets []model.Network
	var current *model.Network

	flush := func() {
		if current != nil && current.SSID != "" {
			nets = append(nets, *current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "BSS "):
			flush()
			current = &model.Network{
				BSSID:      model.ExtractBSSID(strings.Fields(line)[1]),
				Signal:     -100,
				Encryption: model.EncryptionOpen,
			}
		case current == nil:
			continue
		case strings.HasPrefix(line, "SSID:"):
			current.SSID = strings.TrimSpace(line[5:])
		case strings.HasPrefix(line, "signal:"):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if sig, err := strconv.ParseFloat(fields[1], 64); err == nil {
					current.Signal = int(sig)
				}
			}
		case strings.HasPrefix(line, "freq:"):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if mhz, err := strconv.ParseFloat(fields[1], 64); err == nil {
					current.Channel = FrequencyToChannel(mhz)
				}
			}
		case strings.HasPrefix(line, "DS Parameter set: channel"):
			fields := strings.Fields(line)
			if ch, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
				current.Channel = ch
			}
		case strings.Contains(line, "WPA") || strings.Contains(line, "RSN:"):
			current.Encryption = model.EncryptionWPA
		case strings.Contains(line, "WEP"):
			if current.Encryption == model.EncryptionOpen {
				current.Encryption = model.EncryptionWEP
			}
		}
	}
	flush()
	return nets
}

// FrequencyToChannel converts a frequency in MHz to a WiFi channel
// number. Returns 0 for frequencies outside the 2.4 and 5 GHz bands.
func FrequencyToChannel(mhz float64) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz < 2484:
		return int(mhz-2412)/5 + 1
	case mhz >= 5000 && mhz <= 6000:
		return int(mhz-5000) / 5
	default:
		return 0
	}
}

// LocateTarget scans for a specific SSID and returns its BSSID and
// channel. The BSSID pins airodump-ng and aireplay-ng to the right
// access point; the channel keeps the monitor radio from wandering.
// An empty BSSID with a nil error means the SSID was not seen; the
// attack then proceeds with passive capture.
func (m *Manager) LocateTarget(ctx context.Context, iface, ssid string) (bssid string, channel int, err error) {
	out, err := m.rawScan(ctx, iface)
	if err != nil {
		return "", 0, err
	}

	for _, n := range ParseIWScan(out) {
		if n.SSID == ssid {
			m.logger.Info("target located", "ssid", ssid, "bssid", n.BSSID, "channel", n.Channel)
			return n.BSSID, n.Channel, nil
		}
	}

	m.logger.Warn("target not found in scan", "ssid", ssid)
	return "", 0, nil
}
