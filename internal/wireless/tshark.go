package wireless

import (
	"context"
	"fmt"
	"strings"
)

// AnalyzeEncryption classifies the encryption seen in a capture file
// using tshark. RSN version 1 means WPA2, version 2 means WPA3. When no
// RSN elements are present the EAPOL frame count is reported instead,
// which is still useful for judging whether a handshake landed.
//
// tshark being absent is not an error; the analysis is best effort and
// the result string says so.
func (m *Manager) AnalyzeEncryption(ctx context.Context, capFile string) string {
	if !LookupTool("tshark") {
		return "tshark not available"
	}

	res, err := m.runner.Run(ctx, "tshark",
		"-r", capFile,
		"-Y", "wlan.rsn.version",
		"-T", "fields",
		"-e", "wlan.rsn.version",
	)
	if err == nil && res.ExitCode == 0 && strings.TrimSpace(res.Stdout) != "" {
		versions := make(map[string]bool)
		for _, v := range strings.Fields(res.Stdout) {
			versions[v] = true
		}
		switch {
		case versions["1"]:
			return "WPA2 detected"
		case versions["2"]:
			return "WPA3 detected"
		}
	}

	count := m.CountEAPOLFrames(ctx, capFile)
	if count > 0 {
		return fmt.Sprintf("EAPOL frames: %d", count)
	}
	return "Unknown encryption"
}

// CountEAPOLFrames counts EAPOL frames in a capture via tshark.
// Returns 0 when tshark fails or none are present.
func (m *Manager) CountEAPOLFrames(ctx context.Context, capFile string) int {
	res, err := m.runner.Run(ctx, "tshark", "-r", capFile, "-Y", "eapol")
	if err != nil || res.ExitCode != 0 {
		return 0
	}

	count := 0
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
