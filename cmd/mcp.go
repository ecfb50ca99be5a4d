package cmd

import (
	"github.com/huangsam/logscan/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the logscan MCP server",
	Long: `Launch an MCP server on stdio exposing scan_repository, class_lengths and
classify_log_line to AI agents. Logs go to stderr so stdout stays reserved
for the protocol.`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
