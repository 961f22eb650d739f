package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

// outputAsJSON writes any value as formatted JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError prints an error to w. Migration errors get their kind and
// phase on separate lines.
func outputError(w io.Writer, err error) {
	var me *xuanbrain.MigrationError
	if errors.As(err, &me) {
		printError(w, "Error: %s failed during %s", me.Kind, me.Phase)
		printMuted(w, "  %v", err)
		return
	}
	printError(w, "Error: %v", err)
}

// outputLocation prints where data lives.
func outputLocation(cmd *cobra.Command, info *xuanbrain.DataLocation) error {
	if outputJSON {
		return outputAsJSON(cmd, info)
	}

	out := cmd.OutOrStdout()
	printInfo(out, "Data location")

	base := info.BaseDir
	if info.CustomDataPath == nil {
		base += " (default)"
	}
	const width = 16
	printField(out, width, "Root", info.Root)
	printField(out, width, "Base directory", base)
	printField(out, width, "Document", info.ConfigPath)
	printField(out, width, "Database", presence(info.DatabasePath, info.DatabasePresent))
	printField(out, width, "Legacy database", presence(info.LegacyDatabasePath, info.LegacyPresent))

	if info.PendingCleanupPath != nil {
		fmt.Fprintln(out)
		printWarning(out, "Superseded folder awaiting cleanup: %s", *info.PendingCleanupPath)
		printMuted(out, "It is removed at the next start, or now with: xuan-brain data cleanup")
	}
	if len(info.MissingSubdirs) > 0 {
		fmt.Fprintln(out)
		printWarning(out, "Missing subdirectories: %v", info.MissingSubdirs)
	}
	return nil
}

func presence(path string, ok bool) string {
	if ok {
		return path
	}
	return path + " (missing)"
}

// outputReport prints record counts as a table, followed by any per-kind
// errors.
func outputReport(out io.Writer, r *xuanbrain.MigrationReport) {
	rows := [][]string{
		{"papers", strconv.Itoa(r.PapersMigrated)},
		{"authors", strconv.Itoa(r.AuthorsMigrated)},
		{"categories", strconv.Itoa(r.CategoriesMigrated)},
		{"labels", strconv.Itoa(r.LabelsMigrated)},
		{"keywords", strconv.Itoa(r.KeywordsMigrated)},
		{"attachments", strconv.Itoa(r.AttachmentsMigrated)},
		{"paper → author", strconv.Itoa(r.PaperAuthorRelations)},
		{"paper → label", strconv.Itoa(r.PaperLabelRelations)},
		{"paper → category", strconv.Itoa(r.PaperCategoryRelations)},
	}
	fmt.Fprintln(out, renderTable([]string{"KIND", "COUNT"}, rows))

	for _, e := range r.Errors {
		printError(out, "%s", e)
	}
}
