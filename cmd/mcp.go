package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sparklepop/Code-Project-Review/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client analyze repositories and read or adjust saved
reviews. Configure it with:

  {
    "mcpServers": {
      "cpr": { "command": "cpr", "args": ["mcp"] }
    }
  }

Available tools: cpr_analyze_repository, cpr_list_reviews,
cpr_get_review, cpr_update_score`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return mcp.NewServer(svc, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
