package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Migrate library records into the graph store",
	Long: `Copy the legacy relational library (data/legacy.sqlite) into the graph
store (data/xuan-brain.db).

Subcommands:
  migrate  Copy every record and link
  verify   Count what the graph store holds`,
}

var recordsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy every record and link into the graph store",
	Long: `Copy labels, keywords, authors, categories, papers, attachments and the
paper links into the graph store. Each kind is migrated independently; a
failure in one kind is reported and the rest continue.

Skipped when the graph store already holds as many papers, authors and
categories, unless --force is given.`,
	Example: `  xuan-brain records migrate
  xuan-brain records migrate --force --json`,
	Args: cobra.NoArgs,
	RunE: runRecordsMigrate,
}

var recordsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Count records and links in the graph store",
	Args:  cobra.NoArgs,
	RunE:  runRecordsVerify,
}

var recordsForce bool

func init() {
	recordsMigrateCmd.Flags().BoolVar(&recordsForce, "force", false, "Migrate even if the graph store looks complete")

	recordsCmd.AddCommand(recordsMigrateCmd)
	recordsCmd.AddCommand(recordsVerifyCmd)
}

func runRecordsMigrate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var result *xuanbrain.RecordMigrationResult
	migrate := func() error {
		var err error
		result, err = client.MigrateRecords(ctx, recordsForce)
		return err
	}
	if outputJSON {
		err = migrate()
	} else {
		err = runWithSpinner(cmd.ErrOrStderr(), "Migrating records", migrate)
	}
	if err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}

	if outputJSON {
		if err := outputAsJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputRecordMigration(cmd, result)
	}

	if result.Report != nil && !result.Report.OK() {
		return fmt.Errorf("%d of 9 kinds failed", len(result.Report.Errors))
	}
	return nil
}

func outputRecordMigration(cmd *cobra.Command, result *xuanbrain.RecordMigrationResult) {
	out := cmd.OutOrStdout()

	if result.Skipped {
		printInfo(out, "Graph store is up to date; nothing migrated.")
		printMuted(out, "Use --force to migrate anyway.")
	} else {
		r := result.Report
		if r.OK() {
			printSuccess(out, "Migrated %d records and links (took %s)", r.Total(), time.Duration(r.DurationMS)*time.Millisecond)
		} else {
			printWarning(out, "Migrated %d records and links with %d failed kinds", r.Total(), len(r.Errors))
		}
		outputReport(out, r)
	}

	if result.Verified != nil && result.Report != nil && !result.Verified.SameCounts(result.Report) {
		fmt.Fprintln(out)
		printInfo(out, "Graph store now holds:")
		outputReport(out, result.Verified)
	}
	if result.DanglingEdges > 0 {
		printWarning(out, "%d edges point at missing records", result.DanglingEdges)
	}
}

func runRecordsVerify(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := client.VerifyRecordCounts(context.Background())
	if err != nil {
		return fmt.Errorf("verify records: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, report)
	}
	out := cmd.OutOrStdout()
	printInfo(out, "Graph store holds %d records and links", report.Total())
	outputReport(out, report)
	if !report.OK() {
		return fmt.Errorf("%d counts could not be read", len(report.Errors))
	}
	return nil
}
