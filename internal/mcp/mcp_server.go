// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the logscan MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"logscan",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: scan_repository ---
	s.AddTool(mcp.NewTool("scan_repository",
		mcp.WithDescription("Clone a GitHub repository and measure its logging practice, class lengths and contributor distribution."),
		mcp.WithString("url", mcp.Description("Repository URL, e.g. https://github.com/owner/repo."), mcp.Required()),
		mcp.WithString("pipelines", mcp.Description("Comma-separated pipelines: logs, classes, contributors. Defaults to the server configuration.")),
	), h.handleScanRepository)

	// --- 2. Tool: class_lengths ---
	s.AddTool(mcp.NewTool("class_lengths",
		mcp.WithDescription("Measure raw and effective class lengths of a local file or directory."),
		mcp.WithString("path", mcp.Description("File or directory to measure."), mcp.Required()),
		mcp.WithString("language", mcp.Description("Language of the files under a directory. Defaults to the class language of the server.")),
	), h.handleClassLengths)

	// --- 3. Tool: classify_log_line ---
	s.AddTool(mcp.NewTool("classify_log_line",
		mcp.WithDescription("Classify the severity of a source line and extract its log site and templates."),
		mcp.WithString("line", mcp.Description("The source line to classify."), mcp.Required()),
		mcp.WithString("language", mcp.Description("Language whose log patterns are applied. Severity only when empty.")),
	), h.handleClassifyLogLine)

	return s
}

// StartMCPServer serves the tools over stdio. Server errors go to the context logger,
// which must not write to stdout.
func StartMCPServer(ctx context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	logger := contract.LoggerFrom(ctx)
	logger.Info("MCP server listening on stdio", "tools", 3)
	return server.ServeStdio(s, server.WithErrorLogger(logger.StandardLog()))
}
