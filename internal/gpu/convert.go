package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhye/pistorm/internal/wireless"
)

// Conversion errors.
var (
	// ErrNoHashes is returned when the capture holds no crackable
	// handshake or PMKID material.
	ErrNoHashes = errors.New("no crackable hashes in capture")

	// ErrConvertFailed is returned when hcxpcapngtool itself failed.
	ErrConvertFailed = errors.New("capture conversion failed")
)

// hashExt is the extension of hashcat 22000-mode hash files.
const hashExt = ".22000"

// Converter turns raw capture files into hashcat hash files with
// hcxpcapngtool.
type Converter struct {
	runner wireless.Runner
	logger *slog.Logger
}

// NewConverter creates a Converter.
func NewConverter(runner wireless.Runner, logger *slog.Logger) *Converter {
	return &Converter{runner: runner, logger: logger}
}

// Convert extracts WPA hash material from capFile into a .22000 file
// in outDir and returns its path.
func (c *Converter) Convert(ctx context.Context, capFile, outDir string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(capFile), filepath.Ext(capFile))
	hashFile := filepath.Join(outDir, base+hashExt)

	res, err := c.runner.Run(ctx, "hcxpcapngtool", "-o", hashFile, capFile)
	if err != nil {
		return "", fmt.Errorf("run hcxpcapngtool: %w", err)
	}

	// hcxpcapngtool exits zero even when nothing was extracted; the
	// presence of a non-empty output file is the real signal.
	info, statErr := os.Stat(hashFile)
	switch {
	case statErr == nil && info.Size() > 0:
		c.logger.Info("capture converted",
			"capture", capFile,
			"hashes", hashFile,
			"bytes", info.Size(),
		)
		return hashFile, nil
	case res.ExitCode != 0:
		return "", fmt.Errorf("%w: exit %d: %s", ErrConvertFailed, res.ExitCode, strings.TrimSpace(res.Stderr))
	default:
		os.Remove(hashFile)
		return "", fmt.Errorf("%w: %s", ErrNoHashes, filepath.Base(capFile))
	}
}
