package main

import (
	"github.com/spf13/cobra"

	xuanmcp "github.com/xuan-brain/xuan-brain/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio.

This lets coding agents inspect and move the data folder and run record
migration as tools. Folder migration progress is sent to the client as
"data-migration-progress" notifications.

Configuration (claude_desktop_config.json or equivalent):

  {
    "mcpServers": {
      "xuan-brain": {
        "command": "xuan-brain",
        "args": ["mcp"],
        "env": {
          "XUAN_BRAIN_HOME": "/path/to/base"
        }
      }
    }
  }

Environment variables:
  XUAN_BRAIN_HOME        Default base directory
  XUAN_BRAIN_CONFIG      Path to data-path.json
  XUAN_BRAIN_DEBUG       Enable debug logging
  XUAN_BRAIN_DEBUG_LOG   Write logs to this file instead of stderr
  XUAN_BRAIN_LOG_FORMAT  text or json`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// The client persists for the server lifetime.
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	return xuanmcp.NewServer(client).Run()
}
