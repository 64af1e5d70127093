package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhye/pistorm/internal/attack"
	"github.com/jhye/pistorm/internal/capture"
	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/database"
	"github.com/jhye/pistorm/internal/gpu"
	"github.com/jhye/pistorm/internal/server"
	"github.com/jhye/pistorm/internal/wireless"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator API on the Pi",
		Long: `Serve runs the orchestrator HTTP API that drives the attack workflow.

The API serves three clients: operators (JSON endpoints), the embedded
display (plain-text endpoints), and the GPU host (crack result
callbacks). It needs root for monitor mode and packet injection, and
the aircrack-ng suite on PATH.

Examples:
  # Run with the configuration file
  pistorm serve

  # Override the bind address and API key
  pistorm serve --listen :5000 --api-key secret

  # Pin the interfaces instead of auto-detecting
  pistorm serve --scan-interface wlan0 --monitor-interface wlan1`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", "", "Bind address (default from config, :5000)")
	cmd.Flags().StringP("api-key", "k", "", "API key for the X-API-Key header")
	cmd.Flags().String("scan-interface", "", "Interface used for scanning")
	cmd.Flags().String("monitor-interface", "", "Interface used for capture and injection")
	cmd.Flags().String("capture-dir", "", "Directory for capture files")
	cmd.Flags().String("wordlist-dir", "", "Extra directory searched for wordlists")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig merges serve flags over the loaded configuration.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flagOverrides := map[string]*string{
		"listen":            &cfg.ListenAddr,
		"api-key":           &cfg.APIKey,
		"scan-interface":    &cfg.ScanInterface,
		"monitor-interface": &cfg.MonitorInterface,
		"capture-dir":       &cfg.CaptureDir,
		"wordlist-dir":      &cfg.WordlistDir,
	}
	for name, dest := range flagOverrides {
		value, err := cmd.Flags().GetString(name)
		if err != nil {
			return nil, err
		}
		if value != "" {
			*dest = value
		}
	}
	return cfg, nil
}

// runServe wires the orchestrator together and serves until the context
// is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if missing, err := wireless.CheckTools(); err != nil {
		return fmt.Errorf("missing tools %v: %w", missing, err)
	}

	mgr := wireless.NewManager(wireless.WithLogger(logger))

	available, err := mgr.DetectInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("no wireless interfaces found: %w", err)
	}
	scanIface, monIface := wireless.ChooseInterfaces(available, cfg.ScanInterface, cfg.MonitorInterface)
	logger.Info("interfaces selected",
		"scan", scanIface,
		"monitor", monIface,
		"available", available,
	)

	store, err := capture.NewStore(cfg.CaptureDir)
	if err != nil {
		return fmt.Errorf("failed to prepare capture directory: %w", err)
	}

	// History survives without the database; a worn-out SD card must
	// not keep the API down.
	var db *database.AttackDB
	db, err = database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("database unavailable, attack history disabled", "dir", cfg.DBDir, "error", err)
		db = nil
	} else {
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	tracker := attack.NewTracker()
	workerOpts := []attack.WorkerOption{
		attack.WithWorkerLogger(logger),
	}
	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithInterfaces(scanIface, monIface, available),
	}
	if db != nil {
		workerOpts = append(workerOpts, attack.WithRecorder(db))
		serverOpts = append(serverOpts, server.WithScanRecorder(db))
	}
	if cfg.GPU.Configured() {
		offloader := gpu.NewSSHOffloader(cfg.GPU, store, logger)
		workerOpts = append(workerOpts, attack.WithOffloader(offloader))
		serverOpts = append(serverOpts, server.WithOffloader(offloader))
		logger.Info("gpu offload enabled", "host", cfg.GPU.Host)
	}

	worker := attack.NewWorker(mgr, store, tracker, cfg, scanIface, monIface, workerOpts...)
	srv := server.New(cfg, mgr, store, worker, serverOpts...)

	err = srv.Run(ctx)

	// Let a running attack wind down and restore the interfaces before
	// the process exits.
	worker.Stop()
	worker.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
