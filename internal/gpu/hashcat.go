package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jhye/pistorm/internal/wireless"
)

// Hashcat errors.
var (
	// ErrNoGPUWordlists is returned when the listener's wordlist
	// directory holds no dictionaries.
	ErrNoGPUWordlists = errors.New("no wordlists on gpu host")

	// ErrHashcatFailed is returned when hashcat aborted instead of
	// finishing or exhausting.
	ErrHashcatFailed = errors.New("hashcat failed")
)

// hashcat exit statuses. Exhausted is a normal outcome, not a failure.
const (
	hashcatExitCracked   = 0
	hashcatExitExhausted = 1
)

// Hashcat runs dictionary attacks against converted hash files.
type Hashcat struct {
	binary   string
	hashMode int
	runner   wireless.Runner
	logger   *slog.Logger
}

// NewHashcat creates a Hashcat bound to the given binary and hash mode.
func NewHashcat(binary string, hashMode int, runner wireless.Runner, logger *slog.Logger) *Hashcat {
	return &Hashcat{binary: binary, hashMode: hashMode, runner: runner, logger: logger}
}

// Crack runs hashcat over every wordlist in wordlistDir until one
// recovers a passphrase. It returns the passphrase, or "" when all
// dictionaries are exhausted.
func (h *Hashcat) Crack(ctx context.Context, hashFile, wordlistDir, workDir string) (string, error) {
	wordlists, err := listWordlists(wordlistDir)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(hashFile), filepath.Ext(hashFile))
	potfile := filepath.Join(workDir, base+".potfile")
	outfile := filepath.Join(workDir, base+".cracked")

	for _, wl := range wordlists {
		h.logger.Info("hashcat pass", "hashes", filepath.Base(hashFile), "wordlist", filepath.Base(wl))

		res, err := h.runner.Run(ctx, h.binary,
			"-m", strconv.Itoa(h.hashMode),
			"-a", "0",
			"--potfile-path", potfile,
			"--outfile", outfile,
			"--outfile-format", "2",
			"--quiet",
			hashFile,
			wl,
		)
		if err != nil {
			return "", fmt.Errorf("run hashcat: %w", err)
		}

		switch res.ExitCode {
		case hashcatExitCracked:
			if pwd := readCracked(outfile); pwd != "" {
				return pwd, nil
			}
			// Exit zero with an empty outfile means the hash was already
			// in the potfile from an earlier run.
			if pwd := readPotfile(potfile); pwd != "" {
				return pwd, nil
			}
		case hashcatExitExhausted:
			h.logger.Info("wordlist exhausted", "wordlist", filepath.Base(wl))
		default:
			return "", fmt.Errorf("%w: exit %d: %s", ErrHashcatFailed, res.ExitCode, strings.TrimSpace(res.Stderr))
		}
	}
	return "", nil
}

// listWordlists returns the dictionaries in dir, largest first so the
// GPU spends its time on the lists most likely to hit.
func listWordlists(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGPUWordlists, err)
	}

	type sized struct {
		path string
		size int64
	}
	var lists []sized
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".lst" && ext != ".dic" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		lists = append(lists, sized{path: filepath.Join(dir, entry.Name()), size: info.Size()})
	}
	if len(lists) == 0 {
		return nil, fmt.Errorf("%w: nothing under %s", ErrNoGPUWordlists, dir)
	}

	sort.Slice(lists, func(i, j int) bool { return lists[i].size > lists[j].size })

	paths := make([]string, len(lists))
	for i, l := range lists {
		paths[i] = l.path
	}
	return paths, nil
}

// readCracked returns the first passphrase in an outfile-format-2 file.
func readCracked(outfile string) string {
	data, err := os.ReadFile(outfile)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// readPotfile returns the passphrase from the first potfile entry.
// 22000-mode potfile lines are hash:password and the WPA* hash field
// never contains a colon, so the password is everything after the
// first one.
func readPotfile(potfile string) string {
	data, err := os.ReadFile(potfile)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.Index(line, ":"); idx >= 0 && idx < len(line)-1 {
			return line[idx+1:]
		}
	}
	return ""
}
