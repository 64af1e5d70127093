package wireless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrNoCaptureFile is returned when airodump-ng exits without leaving a
// capture file behind.
var ErrNoCaptureFile = errors.New("no capture file created")

// CaptureOptions configures an airodump-ng session.
type CaptureOptions struct {
	// Interface is the monitor-mode interface to capture on.
	Interface string

	// OutputBase is the path prefix airodump-ng writes to. The tool
	// appends its own suffix (".cap", "-01.cap", ...).
	OutputBase string

	// Channel pins the capture to one channel. Zero means hop the
	// common channels 1, 6, and 11 instead.
	Channel int

	// BSSID filters the capture to a single access point. Empty
	// captures everything, which is the passive fallback when the
	// target was not located.
	BSSID string
}

// StartCapture launches airodump-ng in pcap mode. The caller must call
// Stop (or cancel the context) to end the session; airodump-ng runs
// until told otherwise.
func (m *Manager) StartCapture(ctx context.Context, opts CaptureOptions) (Session, error) {
	args := []string{
		"-w", opts.OutputBase,
		"--output-format", "pcap",
		"--write-interval", "1",
	}
	if opts.Channel > 0 {
		args = append(args, "--channel", strconv.Itoa(opts.Channel))
	} else {
		// The three non-overlapping 2.4GHz channels carry most traffic.
		args = append(args, "--channel", "1,6,11")
	}
	if opts.BSSID != "" {
		args = append(args, "--bssid", opts.BSSID)
	}
	args = append(args, opts.Interface)

	m.logger.Info("starting capture",
		"interface", opts.Interface,
		"output", opts.OutputBase,
		"channel", opts.Channel,
		"bssid", opts.BSSID,
	)

	session, err := m.runner.Start(ctx, "airodump-ng", args...)
	if err != nil {
		return nil, fmt.Errorf("start airodump-ng: %w", err)
	}
	m.registry.Register(session.PID())
	return session, nil
}

// StopCapture stops a capture session and unregisters its PID.
func (m *Manager) StopCapture(session Session) error {
	defer m.registry.Unregister(session.PID())
	return session.Stop()
}

// FindCaptureFile locates the file airodump-ng actually wrote for a
// given output base. Depending on version and options the suffix
// varies, so every known form is checked.
func FindCaptureFile(base string) (string, error) {
	candidates := []string{
		base + ".cap",
		base + ".pcap",
		base + "-01.cap",
		base + "-01.pcap",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: base %s", ErrNoCaptureFile, base)
}
