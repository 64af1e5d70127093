package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhye/pistorm/internal/attack"
	"github.com/jhye/pistorm/internal/capture"
	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/database"
	"github.com/jhye/pistorm/internal/gpu"
	"github.com/jhye/pistorm/internal/model"
	"github.com/jhye/pistorm/internal/report"
	"github.com/jhye/pistorm/internal/wireless"
)

// attackPollInterval is how often the terminal progress line refreshes.
const attackPollInterval = 2 * time.Second

// NewAttackCmd creates the attack command.
func NewAttackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attack <ssid>",
		Short: "Run a full attack against one network from the terminal",
		Long: `Attack runs the complete workflow against a single SSID without the
API server: locate the target, capture a WPA handshake with deauth
assistance, and crack it locally (or offload to the GPU host when
configured).

The attack needs root for monitor mode and packet injection. Only run
it against networks you are authorized to test.

Examples:
  # Attack a network and print the report
  pistorm attack HomeNet

  # JSON report written to a file
  pistorm attack --json -o report.json HomeNet`,
		Args: cobra.ExactArgs(1),
		RunE: runAttackCmd,
	}

	cmd.Flags().String("scan-interface", "", "Interface used for scanning")
	cmd.Flags().String("monitor-interface", "", "Interface used for capture and injection")
	cmd.Flags().DurationP("timeout", "t", 0, "Attack timeout (default from config)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runAttackCmd executes the attack command.
func runAttackCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildAttackConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAttack(ctx, cmd, cfg, args[0], logger)
}

// buildAttackConfig merges attack flags over the loaded configuration.
func buildAttackConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	for name, dest := range map[string]*string{
		"scan-interface":    &cfg.ScanInterface,
		"monitor-interface": &cfg.MonitorInterface,
	} {
		value, err := cmd.Flags().GetString(name)
		if err != nil {
			return nil, err
		}
		if value != "" {
			*dest = value
		}
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		cfg.AttackTimeout = config.Duration(timeout)
	}
	return cfg, nil
}

// runAttack wires up the attack worker, runs it to completion, and
// prints the report.
func runAttack(ctx context.Context, cmd *cobra.Command, cfg *config.Config, target string, logger *slog.Logger) error {
	if missing, err := wireless.CheckTools(); err != nil {
		return fmt.Errorf("missing tools %v: %w", missing, err)
	}

	mgr := wireless.NewManager(wireless.WithLogger(logger))
	available, err := mgr.DetectInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("no wireless interfaces found: %w", err)
	}
	scanIface, monIface := wireless.ChooseInterfaces(available, cfg.ScanInterface, cfg.MonitorInterface)

	store, err := capture.NewStore(cfg.CaptureDir)
	if err != nil {
		return fmt.Errorf("failed to prepare capture directory: %w", err)
	}

	tracker := attack.NewTracker()
	opts := []attack.WorkerOption{attack.WithWorkerLogger(logger)}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("database unavailable, attack history disabled", "error", err)
	} else {
		defer db.Close()
		opts = append(opts, attack.WithRecorder(db))
	}

	if cfg.GPU.Configured() {
		opts = append(opts, attack.WithOffloader(gpu.NewSSHOffloader(cfg.GPU, store, logger)))
	}

	worker := attack.NewWorker(mgr, store, tracker, cfg, scanIface, monIface, opts...)
	if err := worker.Start(target); err != nil {
		return fmt.Errorf("failed to start attack: %w", err)
	}

	fmt.Printf("Attacking %s (timeout %s, Ctrl-C to cancel)...\n", target, cfg.AttackTimeout.Std())
	watchAttack(ctx, worker, tracker)
	worker.Wait()

	finished := tracker.Report()
	return outputAttackReport(cmd, &finished)
}

// watchAttack prints a progress line until the attack finishes or the
// context is cancelled.
func watchAttack(ctx context.Context, worker *attack.Worker, tracker *attack.Tracker) {
	ticker := time.NewTicker(attackPollInterval)
	defer ticker.Stop()

	var lastStep string
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nCancelling attack...")
			worker.Stop()
			return
		case <-ticker.C:
			current := tracker.Report()
			if !current.Running {
				return
			}
			if current.Step != lastStep {
				fmt.Printf("[%3d%%] %s: %s\n", current.Progress, current.Phase, current.Step)
				lastStep = current.Step
			}
		}
	}
}

// outputAttackReport renders the finished attack in the requested
// format.
func outputAttackReport(cmd *cobra.Command, finished *model.AttackReport) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return fmt.Errorf("--json and --markdown are mutually exclusive")
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	output, cleanup, err := openReportOutput(outputPath)
	if err != nil {
		return err
	}
	defer cleanup()

	var writer report.Writer
	switch {
	case jsonOut:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownOut:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(true))
	}

	_, err = writer.Write(finished)
	return err
}
