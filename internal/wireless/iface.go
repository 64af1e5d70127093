package wireless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Interface mode errors.
var (
	// ErrNoInterfaces is returned when no wireless interface is present.
	ErrNoInterfaces = errors.New("no wireless interfaces detected")

	// ErrInterfaceNotFound is returned when the named interface does not exist.
	ErrInterfaceNotFound = errors.New("interface does not exist")

	// ErrModeChangeFailed is returned when an interface refuses to change
	// mode or the change does not verify.
	ErrModeChangeFailed = errors.New("interface mode change failed")
)

// modeSettle is how long to wait before verifying a mode change. Some
// drivers report the old mode immediately after "iw set type".
const modeSettle = time.Second

// DetectInterfaces finds the wireless interfaces on the system.
// It prefers "iw dev", which only lists wireless devices, and falls
// back to "ip link" plus a /sys/class/net wireless check when iw
// returns nothing.
func (m *Manager) DetectInterfaces(ctx context.Context) ([]string, error) {
	var interfaces []string

	res, err := m.runner.Run(ctx, "iw", "dev")
	if err == nil && res.ExitCode == 0 {
		for _, line := range strings.Split(res.Stdout, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "Interface ") {
				continue
			}
			fields := strings.Fields(line)
			iface := fields[len(fields)-1]

			// Confirm iw can actually talk to it.
			info, infoErr := m.runner.Run(ctx, "iw", "dev", iface, "info")
			if infoErr == nil && info.ExitCode == 0 && strings.Contains(strings.ToLower(info.Stdout), "type") {
				interfaces = append(interfaces, iface)
				m.logger.Info("found wireless interface", "interface", iface)
			}
		}
	}

	if len(interfaces) == 0 {
		m.logger.Warn("iw dev found nothing, trying ip link")
		interfaces = m.detectViaIPLink(ctx)
	}

	if len(interfaces) == 0 {
		return nil, ErrNoInterfaces
	}
	return interfaces, nil
}

// detectViaIPLink is the fallback detection path for systems where iw
// misbehaves. An interface counts as wireless when the kernel exposes
// a wireless directory for it under /sys/class/net.
func (m *Manager) detectViaIPLink(ctx context.Context) []string {
	res, err := m.runner.Run(ctx, "ip", "link", "show")
	if err != nil || res.ExitCode != 0 {
		return nil
	}

	var interfaces []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if !strings.Contains(line, "wlan") && !strings.Contains(line, "wlp") {
			continue
		}
		// Lines look like "3: wlan1: <BROADCAST,...>".
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 2 {
			continue
		}
		iface := strings.TrimSpace(parts[1])
		if iface == "" {
			continue
		}
		if _, statErr := os.Stat("/sys/class/net/" + iface + "/wireless"); statErr == nil {
			interfaces = append(interfaces, iface)
			m.logger.Info("found wireless interface", "interface", iface)
		}
	}
	return interfaces
}

// ChooseInterfaces picks the scan and monitor interfaces from the
// detected list, preferring the configured names. With a single
// adapter, the same interface serves both roles.
func ChooseInterfaces(available []string, scanPref, monPref string) (scanIface, monIface string) {
	scanIface = available[0]
	for _, iface := range available {
		if iface == scanPref {
			scanIface = scanPref
			break
		}
	}

	monIface = scanIface
	for _, iface := range available {
		if iface == monPref {
			return scanIface, monPref
		}
	}
	if len(available) > 1 {
		for _, iface := range available {
			if iface != scanIface {
				return scanIface, iface
			}
		}
	}
	return scanIface, monIface
}

// SetMonitorMode switches an interface into monitor mode: down, set
// type, up, then verify. A no-op when the interface is already in
// monitor mode.
func (m *Manager) SetMonitorMode(ctx context.Context, iface string) error {
	return m.setMode(ctx, iface, "monitor")
}

// SetManagedMode switches an interface back into managed mode.
func (m *Manager) SetManagedMode(ctx context.Context, iface string) error {
	return m.setMode(ctx, iface, "managed")
}

func (m *Manager) setMode(ctx context.Context, iface, mode string) error {
	m.logger.Info("setting interface mode", "interface", iface, "mode", mode)

	res, err := m.runner.Run(ctx, "ip", "link", "show", iface)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s", ErrInterfaceNotFound, iface)
	}

	if m.interfaceInMode(ctx, iface, mode) {
		m.logger.Info("interface already in requested mode", "interface", iface, "mode", mode)
		return nil
	}

	steps := [][]string{
		{"ip", "link", "set", iface, "down"},
		{"iw", "dev", iface, "set", "type", mode},
		{"ip", "link", "set", iface, "up"},
	}
	for _, step := range steps {
		res, err := m.runner.Run(ctx, step[0], step[1:]...)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("%w: %s: %s", ErrModeChangeFailed, strings.Join(step, " "), strings.TrimSpace(res.Stderr))
		}
	}

	select {
	case <-time.After(modeSettle):
	case <-ctx.Done():
		return ctx.Err()
	}

	if !m.interfaceInMode(ctx, iface, mode) {
		return fmt.Errorf("%w: %s did not verify as %s", ErrModeChangeFailed, iface, mode)
	}
	m.logger.Info("interface mode set", "interface", iface, "mode", mode)
	return nil
}

// interfaceInMode reports whether iw shows the interface in the given mode.
func (m *Manager) interfaceInMode(ctx context.Context, iface, mode string) bool {
	res, err := m.runner.Run(ctx, "iw", "dev", iface, "info")
	return err == nil && res.ExitCode == 0 && strings.Contains(res.Stdout, "type "+mode)
}

// SetChannel tunes a monitor-mode interface to a channel before deauth
// injection. aireplay-ng only hits the target when the radio is on the
// target's channel.
func (m *Manager) SetChannel(ctx context.Context, iface string, channel int) error {
	res, err := m.runner.Run(ctx, "iw", "dev", iface, "set", "channel", fmt.Sprintf("%d", channel))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: set channel %d on %s: %s", ErrModeChangeFailed, channel, iface, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// TestMonitorCapability verifies that an interface can actually capture
// in monitor mode by running a short airodump-ng session on channel 6
// and checking that the capture file received data. Some adapters
// accept monitor mode but never deliver a frame.
func (m *Manager) TestMonitorCapability(ctx context.Context, iface string) (bool, error) {
	if !m.interfaceInMode(ctx, iface, "monitor") {
		if err := m.SetMonitorMode(ctx, iface); err != nil {
			return false, err
		}
	}

	if err := m.SetChannel(ctx, iface, 6); err != nil {
		m.logger.Warn("channel set failed during monitor test", "interface", iface, "error", err)
	}

	base := fmt.Sprintf("%s/pistorm-montest-%d", os.TempDir(), time.Now().UnixNano())
	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	session, err := m.runner.Start(testCtx, "airodump-ng",
		"-w", base, "--output-format", "pcap", "--channel", "6", iface)
	if err != nil {
		return false, err
	}
	m.registry.Register(session.PID())

	<-testCtx.Done()
	_ = session.Stop()
	m.registry.Unregister(session.PID())

	capFile, err := FindCaptureFile(base)
	if err != nil {
		m.logger.Error("monitor test produced no capture file", "interface", iface)
		return false, nil
	}
	defer os.Remove(capFile)

	info, err := os.Stat(capFile)
	if err != nil {
		return false, nil
	}
	m.logger.Info("monitor test captured", "interface", iface, "bytes", info.Size())

	// A file under 100 bytes is just the pcap header.
	return info.Size() > 100, nil
}
