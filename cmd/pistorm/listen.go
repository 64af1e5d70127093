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

	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/gpu"
	"github.com/jhye/pistorm/internal/wireless"
)

// NewListenCmd creates the listen command.
func NewListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run the crack listener on the GPU host",
		Long: `Listen watches a directory for capture files offloaded from the Pi,
converts them to hashcat format with hcxpcapngtool, runs hashcat
through the configured wordlists, and reports results back to the
orchestrator API.

Captures are picked up only once their size is stable across two polls,
so files still in transfer over SSH are never processed half-written.

Examples:
  # Run with the configuration file
  pistorm listen

  # Override the watched directory and orchestrator
  pistorm listen --incoming /srv/pistorm/incoming --orchestrator http://pi.local:5000`,
		Args: cobra.NoArgs,
		RunE: runListenCmd,
	}

	cmd.Flags().StringP("incoming", "i", "", "Directory watched for capture files")
	cmd.Flags().StringP("results", "r", "", "Directory for hashes, potfiles, and result JSON")
	cmd.Flags().StringP("wordlist-dir", "w", "", "Directory holding hashcat wordlists")
	cmd.Flags().StringP("orchestrator", "u", "", "Orchestrator API base URL (empty disables reporting)")
	cmd.Flags().StringP("api-key", "k", "", "API key for result reporting")
	cmd.Flags().String("hashcat", "", "hashcat binary path or name")

	return cmd
}

// runListenCmd executes the listen command.
func runListenCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildListenConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateListener(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runListen(ctx, cfg, logger)
}

// buildListenConfig merges listen flags over the loaded configuration.
func buildListenConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flagOverrides := map[string]*string{
		"incoming":     &cfg.Listener.IncomingDir,
		"results":      &cfg.Listener.ResultsDir,
		"wordlist-dir": &cfg.Listener.WordlistDir,
		"orchestrator": &cfg.Listener.OrchestratorURL,
		"api-key":      &cfg.APIKey,
		"hashcat":      &cfg.Listener.HashcatBinary,
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

// runListen wires the listener together and polls until the context is
// cancelled.
func runListen(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	for _, tool := range []string{cfg.Listener.HashcatBinary, "hcxpcapngtool"} {
		if !wireless.LookupTool(tool) {
			return fmt.Errorf("required tool not on PATH: %s", tool)
		}
	}

	runner := wireless.NewExecRunner()
	converter := gpu.NewConverter(runner, logger)
	cracker := gpu.NewHashcat(cfg.Listener.HashcatBinary, cfg.Listener.HashMode, runner, logger)

	var opts []gpu.ListenerOption
	if cfg.Listener.OrchestratorURL != "" {
		opts = append(opts, gpu.WithReporter(gpu.NewClient(cfg.Listener.OrchestratorURL, cfg.APIKey, logger)))
		logger.Info("result reporting enabled", "orchestrator", cfg.Listener.OrchestratorURL)
	} else {
		logger.Warn("no orchestrator configured, results are written to disk only")
	}

	listener := gpu.NewListener(cfg.Listener, converter, cracker, logger, opts...)

	fmt.Printf("Watching %s for capture files (poll every %s)...\n",
		cfg.Listener.IncomingDir, cfg.Listener.PollInterval.Std())

	err := listener.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
