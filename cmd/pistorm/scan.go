package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/database"
	"github.com/jhye/pistorm/internal/model"
	"github.com/jhye/pistorm/internal/report"
	"github.com/jhye/pistorm/internal/wireless"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a one-shot network survey from the terminal",
		Long: `Scan surveys nearby networks once and prints the result, without
starting the API server. Useful for checking adapter placement and
picking targets before an assessment.

The survey is also stored in the results database so the history of a
site visit is kept.

Examples:
  # Human-readable survey
  pistorm scan

  # JSON output for scripting
  pistorm scan --json

  # Markdown report written to a file
  pistorm scan --markdown -o survey.md`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().String("interface", "", "Interface to scan on (default: auto-detect)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if iface, err := cmd.Flags().GetString("interface"); err != nil {
		return err
	} else if iface != "" {
		cfg.ScanInterface = iface
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := wireless.NewManager(wireless.WithLogger(logger))
	available, err := mgr.DetectInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("no wireless interfaces found: %w", err)
	}
	scanIface, _ := wireless.ChooseInterfaces(available, cfg.ScanInterface, cfg.MonitorInterface)

	fmt.Printf("Scanning on %s...\n", scanIface)
	networks, err := mgr.Scan(ctx, scanIface)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := saveScanSnapshot(ctx, cfg, networks, logger); err != nil {
		logger.Warn("failed to record survey", "error", err)
	}

	writer, cleanup, err := buildNetworkWriter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = writer.WriteNetworks(networks)
	return err
}

// saveScanSnapshot records the survey in the results database.
func saveScanSnapshot(ctx context.Context, cfg *config.Config, networks []model.Network, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveScan(ctx, networks); err != nil {
		return err
	}
	logger.Info("survey recorded", "networks", len(networks))
	return nil
}

// buildNetworkWriter picks the report writer from the output flags. The
// returned cleanup closes the output file, if one was opened.
func buildNetworkWriter(cmd *cobra.Command) (report.Writer, func(), error) {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, nil, err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, nil, err
	}
	if jsonOut && markdownOut {
		return nil, nil, fmt.Errorf("--json and --markdown are mutually exclusive")
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, nil, err
	}

	output, cleanup, err := openReportOutput(outputPath)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case jsonOut:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), cleanup, nil
	case markdownOut:
		return report.NewMarkdownWriter(output), cleanup, nil
	default:
		return report.NewSimpleWriter(output), cleanup, nil
	}
}

// openReportOutput resolves the report destination: a file when a path
// is given, stdout otherwise.
// Report files are created 0600; surveys and attack reports from an
// assessment are sensitive.
func openReportOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
