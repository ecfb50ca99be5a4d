package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/logscan/core"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

func (h *toolHandler) handleScanRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	cfg := h.baseCfg.Clone()
	if p := request.GetString("pipelines", ""); p != "" {
		pipelines, err := contract.ParsePipelines(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid pipelines: %v", err)), nil
		}
		cfg.Pipelines = pipelines
	}

	res, err := core.ScanRepository(ctx, cfg, h.mgr, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	if !res.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("scan of %s failed: %v", url, res.Err)), nil
	}
	return jsonResult(res.Record)
}

func (h *toolHandler) handleClassLengths(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	language := request.GetString("language", h.baseCfg.ClassLanguage)

	m, err := core.ClassLengths(ctx, path, language, h.baseCfg.RulesFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("class measurement failed: %v", err)), nil
	}
	return jsonResult(m)
}

func (h *toolHandler) handleClassifyLogLine(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line := request.GetString("line", "")
	if line == "" {
		return mcp.NewToolResultError("line is required"), nil
	}

	report, err := core.ClassifyLine(line, request.GetString("language", ""), h.baseCfg.RulesFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
	}
	return jsonResult(report)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
