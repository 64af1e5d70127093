package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/jhye/pistorm/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for engagement write-ups and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the attack report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AttackReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("PiStorm Attack Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + report.Target + "`"},
		{"Outcome", outcomeText(report)},
		{"Handshake captured", yesNo(report.HandshakeCaptured)},
	}
	if report.TargetBSSID != "" {
		rows = append(rows,
			[]string{"BSSID", "`" + report.TargetBSSID + "`"},
			[]string{"Channel", strconv.Itoa(report.Channel)},
		)
	}
	if !report.StartedAt.IsZero() {
		rows = append(rows,
			[]string{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			[]string{"Runtime", report.Runtime(time.Now()).Round(time.Second).String()},
		)
	}
	if report.CaptureFile != "" {
		rows = append(rows, []string{"Capture file", "`" + report.CaptureFile + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Succeeded() {
		md.Importantf("Passphrase recovered: `%s`", report.Result)
	} else if !report.Running && report.Result != "" {
		md.Note("No passphrase was recovered. Result: " + report.Result)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteNetworks outputs the survey in Markdown format.
func (w *MarkdownWriter) WriteNetworks(networks []model.Network) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Network Survey")
	md.PlainText("")

	if len(networks) == 0 {
		md.PlainText("No networks found.")
	} else {
		rows := make([][]string, 0, len(networks))
		for _, n := range networks {
			rows = append(rows, []string{
				n.SSID,
				"`" + n.BSSID + "`",
				strconv.Itoa(n.Channel),
				strconv.Itoa(n.Signal),
				string(n.Encryption),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"SSID", "BSSID", "Channel", "Signal (dBm)", "Encryption"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("Report generated by PiStorm")
}
