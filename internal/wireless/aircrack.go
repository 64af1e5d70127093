package wireless

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// keyFoundPattern extracts the recovered passphrase from aircrack-ng
// output, which prints a line like "KEY FOUND! [ hunter22 ]".
var keyFoundPattern = regexp.MustCompile(`KEY FOUND!\s*\[\s*(.+?)\s*\]`)

// HasHandshake checks whether a capture file contains a WPA handshake.
// aircrack-ng is invoked in quiet mode purely for its file summary; the
// summary line reads "... (1 handshake)" when one is present.
func (m *Manager) HasHandshake(ctx context.Context, capFile, bssid string) (bool, error) {
	args := []string{"-q", capFile}
	if bssid != "" {
		args = append(args, "-b", bssid)
	}

	res, err := m.runner.Run(ctx, "aircrack-ng", args...)
	if err != nil {
		return false, fmt.Errorf("aircrack-ng: %w", err)
	}

	found := strings.Contains(strings.ToLower(res.Stdout), "handshake")
	m.logger.Info("handshake check", "file", capFile, "found", found)
	return found, nil
}

// Crack runs a dictionary attack against a capture file with a single
// wordlist. Gzipped wordlists are decompressed on the fly and streamed
// into aircrack-ng over stdin rather than unpacked to disk; rockyou.gz
// expands to 140MB, which matters on a Pi's SD card.
//
// The returned password is empty when the wordlist was exhausted
// without a match.
func (m *Manager) Crack(ctx context.Context, capFile, wordlist, bssid string) (string, error) {
	m.logger.Info("dictionary attack", "file", capFile, "wordlist", wordlist)

	var res Result
	var err error
	if strings.HasSuffix(wordlist, ".gz") {
		res, err = m.crackCompressed(ctx, capFile, wordlist, bssid)
	} else {
		args := []string{"-w", wordlist, "-q", capFile}
		if bssid != "" {
			args = append(args, "-b", bssid)
		}
		res, err = m.runner.Run(ctx, "aircrack-ng", args...)
	}
	if err != nil {
		return "", fmt.Errorf("aircrack-ng: %w", err)
	}

	return ParseCrackedKey(res.Stdout), nil
}

// crackCompressed streams a gzipped wordlist into aircrack-ng.
func (m *Manager) crackCompressed(ctx context.Context, capFile, wordlist, bssid string) (Result, error) {
	f, err := os.Open(wordlist)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Result{}, fmt.Errorf("open gzip wordlist %s: %w", wordlist, err)
	}
	defer gz.Close()

	args := []string{"-w", "-", "-q", capFile}
	if bssid != "" {
		args = append(args, "-b", bssid)
	}
	return m.runner.RunInput(ctx, gz, "aircrack-ng", args...)
}

// ParseCrackedKey extracts the recovered key from aircrack-ng output,
// or returns an empty string when no key was found.
func ParseCrackedKey(output string) string {
	matches := keyFoundPattern.FindStringSubmatch(output)
	if len(matches) < 2 {
		return ""
	}
	return strings.TrimSpace(matches[1])
}
