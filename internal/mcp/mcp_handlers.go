package mcp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/huangsam/casetrend/core"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/outwriter"
	"github.com/huangsam/casetrend/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// requestConfig clones the base config and applies the arguments shared by all tools.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.Output = schema.JSONOut
	cfg.OutputFile = ""

	start := request.GetString("start", "")
	end := request.GetString("end", "")
	if start != "" || end != "" {
		if err := contract.ApplyTimeRange(cfg, start, end); err != nil {
			return nil, err
		}
	}

	if r := request.GetString("region", ""); r != "" {
		regions, err := contract.ParseRegions(r)
		if err != nil {
			return nil, fmt.Errorf("invalid region: %w", err)
		}
		cfg.Regions = regions
	}
	return cfg, nil
}

func (h *toolHandler) handleListSnapshots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summaries, err := core.ListSnapshots(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := outwriter.WriteSnapshotSummaries(&buf, summaries, cfg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (h *toolHandler) handleGetSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := core.GetSeriesResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("aggregation failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := outwriter.WriteSeriesResults(&buf, result, cfg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (h *toolHandler) handleGetTrends(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg.MinCount = request.GetInt("min_count", cfg.MinCount)
	if cfg.MinCount < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("min_count cannot be negative (received %d)", cfg.MinCount)), nil
	}
	cfg.Extend = request.GetFloat("extend", cfg.Extend)
	if cfg.Extend < 0 || cfg.Extend > contract.MaxExtend {
		return mcp.NewToolResultError(fmt.Sprintf("extend must be between 0 and %.0f (received %g)", contract.MaxExtend, cfg.Extend)), nil
	}
	cfg.Points = request.GetInt("points", 0)
	if cfg.Points < 0 || cfg.Points > contract.MaxPoints {
		return mcp.NewToolResultError(fmt.Sprintf("points must be between 0 and %d (received %d)", contract.MaxPoints, cfg.Points)), nil
	}

	_, trends, err := core.GetTrendResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trend fit failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := outwriter.WriteTrendResults(&buf, trends, cfg); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
