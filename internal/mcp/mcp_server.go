// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the casetrend MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"casetrend Case Count Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: list_snapshots ---
	s.AddTool(mcp.NewTool("list_snapshots",
		mcp.WithDescription("List the stored case count snapshots with their region count and total."),
		mcp.WithString("start", mcp.Description("Earliest snapshot to include (YYYY-MM-DD, RFC3339 or 'N days ago').")),
		mcp.WithString("end", mcp.Description("Latest snapshot to include (YYYY-MM-DD, RFC3339 or 'N days ago').")),
	), h.handleListSnapshots)

	// --- 2. Tool: get_series ---
	s.AddTool(mcp.NewTool("get_series",
		mcp.WithDescription("Get the cumulative case count time series per region, including the synthesized total."),
		mcp.WithString("region", mcp.Description("Comma separated regions to keep (e.g. 'Bayern,Berlin'). All regions when empty.")),
		mcp.WithString("start", mcp.Description("Earliest snapshot to include.")),
		mcp.WithString("end", mcp.Description("Latest snapshot to include.")),
	), h.handleGetSeries)

	// --- 3. Tool: get_trends ---
	s.AddTool(mcp.NewTool("get_trends",
		mcp.WithDescription("Fit an exponential growth curve per region and report rate, doubling time and extrapolated counts."),
		mcp.WithString("region", mcp.Description("Comma separated regions to fit. All regions when empty.")),
		mcp.WithString("start", mcp.Description("Earliest snapshot to include.")),
		mcp.WithString("end", mcp.Description("Latest snapshot to include.")),
		mcp.WithNumber("min_count", mcp.Description("Regions whose maximum count stays below this are not fitted.")),
		mcp.WithNumber("extend", mcp.Description("Fraction of the observed span to extrapolate (e.g. 0.2).")),
		mcp.WithNumber("points", mcp.Description("Curve samples per region. Curves are omitted when 0 or absent.")),
	), h.handleGetTrends)

	return s
}

// StartMCPServer starts the casetrend MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
