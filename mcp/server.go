// Package mcp exposes the xuan-brain migration engines as MCP (Model
// Context Protocol) tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

// Server wraps the MCP server with xuan-brain tools.
type Server struct {
	client    *xuanbrain.Client
	mcpServer *server.MCPServer
	progress  *ProgressLog
}

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server with xuan-brain tools registered.
func NewServer(client *xuanbrain.Client) *Server {
	s := &Server{
		client:   client,
		progress: NewProgressLog(),
	}

	s.mcpServer = server.NewMCPServer(
		"xuan-brain",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
// This is primarily for testing the MCP protocol layer.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// Progress returns the log of the most recent folder migration.
func (s *Server) Progress() *ProgressLog {
	return s.progress
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "xuan_data_info", Description: "Show where the data folder lives and what it contains"},
		{Name: "xuan_data_migrate", Description: "Move the data folder to a new base directory, rolling back on failure"},
		{Name: "xuan_data_rollback", Description: "Undo a folder migration between two base directories"},
		{Name: "xuan_data_cleanup", Description: "Delete the superseded data folder left by the last migration"},
		{Name: "xuan_data_progress", Description: "Report the latest progress update of the last folder migration"},
		{Name: "xuan_records_migrate", Description: "Copy the legacy relational library into the graph store"},
		{Name: "xuan_records_verify", Description: "Count records and relations in the graph store"},
	}
}

// CallTool executes a tool by name with the given arguments.
// This is used for testing and direct invocation.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	switch name {
	case "xuan_data_info":
		return s.handleDataInfo(ctx, args)
	case "xuan_data_migrate":
		return s.handleDataMigrate(ctx, args)
	case "xuan_data_rollback":
		return s.handleDataRollback(ctx, args)
	case "xuan_data_cleanup":
		return s.handleDataCleanup(ctx, args)
	case "xuan_data_progress":
		return s.handleDataProgress(ctx, args)
	case "xuan_records_migrate":
		return s.handleRecordsMigrate(ctx, args)
	case "xuan_records_verify":
		return s.handleRecordsVerify(ctx, args)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("xuan_data_info",
		mcp.WithDescription("Show where the xuan-brain data folder lives: the base directory, the resolved root, any pending cleanup, and which subdirectories or databases are missing. Read-only."),
	), s.wrap(s.handleDataInfo))

	s.mcpServer.AddTool(mcp.NewTool("xuan_data_migrate",
		mcp.WithDescription("Copy the data folder (data, config, files, cache, logs) to a new base directory and make it active. On a copy failure the partial destination is removed and the old location stays active. The old folder is deleted at the next startup or by xuan_data_cleanup."),
		mcp.WithString("dest_base",
			mcp.Description("Destination base directory. The data folder is created as <dest_base>/xuan-brain."),
			mcp.Required(),
		),
	), s.wrap(s.handleDataMigrate))

	s.mcpServer.AddTool(mcp.NewTool("xuan_data_rollback",
		mcp.WithDescription("Undo a folder migration: delete the destination data folder and make the source active again."),
		mcp.WithString("source_base",
			mcp.Description("Base directory the data was migrated from"),
			mcp.Required(),
		),
		mcp.WithString("dest_base",
			mcp.Description("Base directory the data was migrated to"),
			mcp.Required(),
		),
	), s.wrap(s.handleDataRollback))

	s.mcpServer.AddTool(mcp.NewTool("xuan_data_cleanup",
		mcp.WithDescription("Delete the superseded data folder recorded by the last migration. Paths that are not a xuan-brain folder or overlap the active folder are never deleted."),
	), s.wrap(s.handleDataCleanup))

	s.mcpServer.AddTool(mcp.NewTool("xuan_data_progress",
		mcp.WithDescription("Report the latest progress update of the last folder migration started by this server."),
	), s.wrap(s.handleDataProgress))

	s.mcpServer.AddTool(mcp.NewTool("xuan_records_migrate",
		mcp.WithDescription("Copy papers, authors, categories, labels, keywords, attachments and their links from the legacy relational database into the graph store. Skipped when the graph store already holds everything unless force is set."),
		mcp.WithBoolean("force",
			mcp.Description("Migrate even if the graph store already holds as many records (default: false)"),
		),
	), s.wrap(s.handleRecordsMigrate))

	s.mcpServer.AddTool(mcp.NewTool("xuan_records_verify",
		mcp.WithDescription("Count records and relations in the graph store. Read-only."),
	), s.wrap(s.handleRecordsVerify))
}

type toolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

// wrap adapts an internal handler to the mcp-go handler signature.
func (s *Server) wrap(h toolHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
	}
	if r.IsError {
		result.IsError = true
	}
	return result
}

// Internal handlers

func (s *Server) handleDataInfo(_ context.Context, _ map[string]any) (*ToolResult, error) {
	info, err := s.client.Info()
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("info failed: %v", err), IsError: true}, nil
	}
	return &ToolResult{Content: formatDataLocation(info)}, nil
}

func (s *Server) handleDataMigrate(ctx context.Context, args map[string]any) (*ToolResult, error) {
	dest, ok := args["dest_base"].(string)
	if !ok || strings.TrimSpace(dest) == "" {
		return &ToolResult{Content: "dest_base is required", IsError: true}, nil
	}

	s.progress.Reset()
	err := s.client.ChangeDataLocation(ctx, dest, s.progress.sink(ctx, s.mcpServer))
	if err != nil {
		return &ToolResult{Content: formatMigrationFailure(err), IsError: true}, nil
	}

	info, err := s.client.Info()
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("migration completed, but info failed: %v", err), IsError: true}, nil
	}

	var sb strings.Builder
	sb.WriteString("Data folder migrated.\n")
	sb.WriteString(formatDataLocation(info))
	if last, ok := s.progress.Last(); ok {
		fmt.Fprintf(&sb, "\nCopied %d of %d files.", last.ProcessedFiles, last.TotalFiles)
	}
	return &ToolResult{Content: sb.String()}, nil
}

func (s *Server) handleDataRollback(ctx context.Context, args map[string]any) (*ToolResult, error) {
	source, _ := args["source_base"].(string)
	dest, _ := args["dest_base"].(string)
	if source == "" || dest == "" {
		return &ToolResult{Content: "source_base and dest_base are required", IsError: true}, nil
	}

	s.progress.Reset()
	if err := s.client.RollbackDataLocation(ctx, source, dest, s.progress.sink(ctx, s.mcpServer)); err != nil {
		return &ToolResult{Content: formatMigrationFailure(err), IsError: true}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("Rolled back: %s removed, %s is active again.", dest, source)}, nil
}

func (s *Server) handleDataCleanup(ctx context.Context, _ map[string]any) (*ToolResult, error) {
	removed, err := s.client.Cleanup(ctx)
	if errors.Is(err, xuanbrain.ErrUnsafeCleanupPath) {
		return &ToolResult{Content: fmt.Sprintf("cleanup refused: %v", err), IsError: true}, nil
	}
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("cleanup failed: %v", err), IsError: true}, nil
	}
	if removed == "" {
		return &ToolResult{Content: "Nothing to clean up."}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("Removed %s", removed)}, nil
}

func (s *Server) handleDataProgress(_ context.Context, _ map[string]any) (*ToolResult, error) {
	last, ok := s.progress.Last()
	if !ok {
		return &ToolResult{Content: "No folder migration has run in this session."}, nil
	}
	return &ToolResult{Content: formatStatus(last)}, nil
}

func (s *Server) handleRecordsMigrate(ctx context.Context, args map[string]any) (*ToolResult, error) {
	force, _ := args["force"].(bool)

	result, err := s.client.MigrateRecords(ctx, force)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("record migration failed: %v", err), IsError: true}, nil
	}

	var sb strings.Builder
	if result.Skipped {
		sb.WriteString("Graph store is up to date, nothing migrated.\n\n")
	} else {
		sb.WriteString("Migrated:\n")
		sb.WriteString(formatReport(result.Report))
		sb.WriteString("\n")
	}
	sb.WriteString("Graph store now holds:\n")
	sb.WriteString(formatReport(result.Verified))
	if result.DanglingEdges > 0 {
		fmt.Fprintf(&sb, "\nWarning: %d edges point at missing records.", result.DanglingEdges)
	}

	isError := result.Report != nil && !result.Report.OK()
	return &ToolResult{Content: sb.String(), IsError: isError}, nil
}

func (s *Server) handleRecordsVerify(ctx context.Context, _ map[string]any) (*ToolResult, error) {
	report, err := s.client.VerifyRecordCounts(ctx)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("verify failed: %v", err), IsError: true}, nil
	}
	return &ToolResult{Content: formatReport(report)}, nil
}

// Formatting functions

func formatDataLocation(info *xuanbrain.DataLocation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Root: %s\n", info.Root)
	fmt.Fprintf(&sb, "Base directory: %s", info.BaseDir)
	if info.CustomDataPath == nil {
		sb.WriteString(" (default)")
	}
	sb.WriteString("\n")
	if info.PendingCleanupPath != nil {
		fmt.Fprintf(&sb, "Pending cleanup: %s\n", *info.PendingCleanupPath)
	}
	fmt.Fprintf(&sb, "Database: %s (%s)\n", info.DatabasePath, presence(info.DatabasePresent))
	fmt.Fprintf(&sb, "Legacy database: %s (%s)\n", info.LegacyDatabasePath, presence(info.LegacyPresent))
	if len(info.MissingSubdirs) > 0 {
		fmt.Fprintf(&sb, "Missing subdirectories: %s\n", strings.Join(info.MissingSubdirs, ", "))
	}
	return sb.String()
}

func formatStatus(st xuanbrain.MigrationStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Phase: %s\n", st.Phase)
	fmt.Fprintf(&sb, "Files: %d/%d (%.0f%%)\n", st.ProcessedFiles, st.TotalFiles, st.Percent())
	if st.CurrentFile != nil {
		fmt.Fprintf(&sb, "Current file: %s\n", *st.CurrentFile)
	}
	if st.Error != nil {
		fmt.Fprintf(&sb, "Error: %s\n", *st.Error)
	}
	return sb.String()
}

func formatReport(r *xuanbrain.MigrationReport) string {
	var sb strings.Builder
	rows := []struct {
		label string
		n     int
	}{
		{"papers", r.PapersMigrated},
		{"authors", r.AuthorsMigrated},
		{"categories", r.CategoriesMigrated},
		{"labels", r.LabelsMigrated},
		{"keywords", r.KeywordsMigrated},
		{"attachments", r.AttachmentsMigrated},
		{"paper-author links", r.PaperAuthorRelations},
		{"paper-label links", r.PaperLabelRelations},
		{"paper-category links", r.PaperCategoryRelations},
	}
	for _, row := range rows {
		fmt.Fprintf(&sb, "  %-21s %d\n", row.label+":", row.n)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "  errors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "    - %s\n", e)
		}
	}
	return sb.String()
}

func formatMigrationFailure(err error) string {
	var me *xuanbrain.MigrationError
	if errors.As(err, &me) {
		return fmt.Sprintf("migration failed (%s during %s): %v", me.Kind, me.Phase, err)
	}
	return fmt.Sprintf("migration failed: %v", err)
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}
