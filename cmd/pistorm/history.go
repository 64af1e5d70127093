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

	"github.com/jhye/pistorm/internal/database"
	"github.com/jhye/pistorm/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past attack results from the database",
		Long: `History lists the attack reports stored in the results database.

Examples:
  # List all recorded attacks
  pistorm history

  # Only attacks against one network
  pistorm history --target HomeNet

  # Show the full report for one entry
  pistorm history --id 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("target", "t", "", "Filter by target SSID")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to list")
	cmd.Flags().Int64("id", 0, "Show the full report for one entry")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no results database at %s (run an attack first): %w", cfg.DBDir, err)
	}
	defer db.Close()

	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	if id > 0 {
		return showReport(ctx, db, id)
	}

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	return listHistory(ctx, db, target, limit)
}

// showReport prints the full stored report for one entry.
func showReport(ctx context.Context, db *database.AttackDB, id int64) error {
	stored, err := db.GetReportByID(ctx, id)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("no report with id %d", id)
	}

	writer := report.NewSimpleWriter(os.Stdout, report.WithVerbose(true))
	_, err = writer.Write(stored)
	return err
}

// listHistory prints one line per stored attack.
func listHistory(ctx context.Context, db *database.AttackDB, target string, limit int) error {
	entries, err := db.History(ctx, target, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No attacks recorded.")
		return nil
	}

	fmt.Printf("%-5s %-24s %-20s %-10s %s\n", "ID", "TARGET", "WHEN", "HANDSHAKE", "OUTCOME")
	for _, e := range entries {
		outcome := "failed"
		if e.Succeeded {
			outcome = "key recovered"
		}
		handshake := "no"
		if e.HandshakeCaptured {
			handshake = "yes"
		}
		fmt.Printf("%-5d %-24s %-20s %-10s %s\n",
			e.ID, e.Target, e.Timestamp.Format(time.DateTime), handshake, outcome)
	}
	fmt.Printf("\n%d attacks. Use --id <n> for the full report.\n", len(entries))
	return nil
}
