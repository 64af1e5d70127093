// Package main provides the entry point for the PiStorm CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/log"
)

// NewRootCmd creates the root command for PiStorm.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pistorm",
		Short: "Distributed WiFi penetration-testing harness",
		Long: `PiStorm is a distributed WiFi penetration-testing harness for
authorized security assessments.

On a Raspberry Pi, "pistorm serve" exposes an HTTP API that drives the
aircrack-ng suite: scan for networks, capture WPA handshakes, and crack
them locally or offload captures to a GPU host. On the GPU host,
"pistorm listen" watches for offloaded captures and cracks them with
hashcat, reporting results back to the Pi.

Only use PiStorm against networks you own or are authorized to test.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .pistorm in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewListenCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewAttackCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig builds a Config from defaults, the configuration file, and
// then the command's flags, in that order so flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicit := configPath != ""
	found := config.FindConfigFile(configPath)
	if found != "" {
		if err := config.LoadFile(found, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// setupLogger creates the structured logger. All log output goes
// through the sanitizing handler so recovered passphrases and API keys
// never land in logs.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}
