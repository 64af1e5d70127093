package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jhye/pistorm/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display over SSH sessions to
// the Pi, so it sticks to plain ASCII.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the attack report in human-readable format.
func (w *SimpleWriter) Write(report *model.AttackReport) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "PISTORM ATTACK REPORT")

	sb.WriteString(fmt.Sprintf("Target:     %s\n", report.Target))
	if report.TargetBSSID != "" {
		sb.WriteString(fmt.Sprintf("BSSID:      %s (channel %d)\n", report.TargetBSSID, report.Channel))
	}
	if !report.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
		sb.WriteString(fmt.Sprintf("Runtime:    %s\n", report.Runtime(time.Now()).Round(time.Second)))
	}
	sb.WriteString(fmt.Sprintf("Handshake:  %s\n", yesNo(report.HandshakeCaptured)))
	sb.WriteString(fmt.Sprintf("Outcome:    %s\n", outcomeText(report)))

	if report.Succeeded() {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  [+] PASSPHRASE: %s\n", report.Result))
	}

	if w.verbose {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Phase:          %s\n", report.Phase))
		sb.WriteString(fmt.Sprintf("Last step:      %s\n", report.Step))
		sb.WriteString(fmt.Sprintf("Networks seen:  %d\n", report.NetworksFound))
		if report.CaptureFile != "" {
			sb.WriteString(fmt.Sprintf("Capture file:   %s\n", report.CaptureFile))
		}
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// WriteNetworks outputs the survey as a fixed-width table.
func (w *SimpleWriter) WriteNetworks(networks []model.Network) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "NETWORK SURVEY")

	if len(networks) == 0 {
		sb.WriteString("No networks found\n")
	} else {
		sb.WriteString(fmt.Sprintf("%-32s %-18s %3s %6s  %s\n", "SSID", "BSSID", "CH", "SIGNAL", "ENC"))
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		for _, n := range networks {
			sb.WriteString(fmt.Sprintf("%-32s %-18s %3d %6d  %s\n",
				truncate(n.SSID, 32), n.BSSID, n.Channel, n.Signal, n.Encryption))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%d networks\n", len(networks)))
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeBanner writes the boxed section title.
func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := (70 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// outcomeText renders the result field for display.
func outcomeText(report *model.AttackReport) string {
	switch {
	case report.Running:
		return fmt.Sprintf("RUNNING (%d%%)", report.Progress)
	case report.Succeeded():
		return "KEY RECOVERED"
	case report.Result == "":
		return "NOT STARTED"
	default:
		return report.Result
	}
}

// yesNo renders a bool for display.
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncate shortens s to max runes for table alignment.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
