package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect and move the data folder",
	Long: `Inspect and move the xuan-brain data folder.

The data folder holds five subdirectories: data (databases), config,
files (PDFs and attachments), cache and logs. It always lives at
<base-dir>/xuan-brain.

Subcommands:
  info      Show where data lives
  migrate   Copy the data folder to a new base directory
  rollback  Undo a migration
  cleanup   Delete the folder left behind by the last migration`,
}

var dataInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show where data lives",
	Args:  cobra.NoArgs,
	RunE:  runDataInfo,
}

var dataMigrateCmd = &cobra.Command{
	Use:   "migrate <dest-base-dir>",
	Short: "Copy the data folder to a new base directory",
	Long: `Copy the data folder to <dest-base-dir>/xuan-brain and make it active.

Nothing is deleted: the old folder is recorded for cleanup and removed at
the next start. If a copy fails, the partial destination is removed and the
old folder stays active.`,
	Example: `  xuan-brain data migrate /mnt/external
  xuan-brain data migrate ~/Library/xuan-brain --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDataMigrate,
}

var dataRollbackCmd = &cobra.Command{
	Use:   "rollback <source-base-dir> <dest-base-dir>",
	Short: "Undo a migration",
	Long: `Remove <dest-base-dir>/xuan-brain and make <source-base-dir> active again.

Refuses when the two folders are the same or nested, so the source is never
touched.`,
	Args: cobra.ExactArgs(2),
	RunE: runDataRollback,
}

var dataCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete the folder left behind by the last migration",
	Args:  cobra.NoArgs,
	RunE:  runDataCleanup,
}

func init() {
	dataCmd.AddCommand(dataInfoCmd)
	dataCmd.AddCommand(dataMigrateCmd)
	dataCmd.AddCommand(dataRollbackCmd)
	dataCmd.AddCommand(dataCleanupCmd)
}

// DataMigrateResult for JSON output.
type DataMigrateResult struct {
	From       string `json:"from"`
	To         string `json:"to"`
	TotalFiles int    `json:"total_files"`
	DurationMs int64  `json:"duration_ms"`
}

// DataCleanupResult for JSON output.
type DataCleanupResult struct {
	Removed string `json:"removed,omitempty"`
}

// lastStatus remembers the final progress update for the summary.
type lastStatus struct {
	next   xuanbrain.ProgressSink
	status xuanbrain.MigrationStatus
}

func (l *lastStatus) Emit(channel string, st xuanbrain.MigrationStatus) error {
	l.status = st
	if l.next == nil {
		return nil
	}
	return l.next.Emit(channel, st)
}

func runDataInfo(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	info, err := client.Info()
	if err != nil {
		return fmt.Errorf("read data location: %w", err)
	}
	return outputLocation(cmd, info)
}

func runDataMigrate(cmd *cobra.Command, args []string) error {
	dest, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	before, err := client.Info()
	if err != nil {
		return fmt.Errorf("read data location: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sink := &lastStatus{}
	if !outputJSON {
		sink.next = newProgressPrinter(cmd.ErrOrStderr())
	}

	start := time.Now()
	if err := client.ChangeDataLocation(ctx, dest, sink); err != nil {
		return err
	}
	duration := time.Since(start)

	after, err := client.Info()
	if err != nil {
		return fmt.Errorf("read data location: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, DataMigrateResult{
			From:       before.Root,
			To:         after.Root,
			TotalFiles: sink.status.TotalFiles,
			DurationMs: duration.Milliseconds(),
		})
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Data folder moved to %s (took %s)", after.Root, duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Copied %d files\n", sink.status.ProcessedFiles)
	printMuted(out, "The old folder %s is removed at the next start, or now with: xuan-brain data cleanup", before.Root)
	return nil
}

func runDataRollback(cmd *cobra.Command, args []string) error {
	source, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	dest, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var sink xuanbrain.ProgressSink = xuanbrain.DiscardProgress
	if !outputJSON {
		sink = newProgressPrinter(cmd.ErrOrStderr())
	}
	if err := client.RollbackDataLocation(context.Background(), source, dest, sink); err != nil {
		return err
	}

	info, err := client.Info()
	if err != nil {
		return fmt.Errorf("read data location: %w", err)
	}
	if outputJSON {
		return outputAsJSON(cmd, info)
	}
	printSuccess(cmd.OutOrStdout(), "Rolled back; active folder is %s", info.Root)
	return nil
}

func runDataCleanup(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	removed, err := client.Cleanup(context.Background())
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, DataCleanupResult{Removed: removed})
	}
	out := cmd.OutOrStdout()
	if removed == "" {
		printMuted(out, "Nothing to clean up.")
		return nil
	}
	printSuccess(out, "Removed %s", removed)
	return nil
}
