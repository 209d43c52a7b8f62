// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Fairspot MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Fairspot Fairness Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: compute_fairness ---
	s.AddTool(mcp.NewTool("compute_fairness",
		mcp.WithDescription("Compute group fairness metrics and parity verdicts for a tabular dataset of model outcomes."),
		mcp.WithString("dataset_path", mcp.Description("Path to a CSV, TSV, JSON or JSON Lines dataset."), mcp.Required()),
		mcp.WithString("attributes", mcp.Description("Comma-separated protected attribute columns, e.g. 'race,sex'."), mcp.Required()),
		mcp.WithString("metrics", mcp.Description("Comma-separated metric names. Defaults to every metric the mapped columns support.")),
		mcp.WithString("reference", mcp.Description("Reference group that pairwise metrics compare against.")),
		mcp.WithString("positive_class", mcp.Description("Outcome value that counts as positive. Inferred for binary outcomes.")),
		mcp.WithString("truth", mcp.Description("Ground-truth outcome column.")),
		mcp.WithString("prediction", mcp.Description("Predicted outcome column.")),
		mcp.WithString("control", mcp.Description("Column to stratify by for conditional parity.")),
		mcp.WithString("verdict_metric", mcp.Description("Per-group metric judged for parity. Defaults to selection_rate, or base_rate without a prediction column.")),
	), h.handleComputeFairness)

	// --- 2. Tool: explore_dataset ---
	s.AddTool(mcp.NewTool("explore_dataset",
		mcp.WithDescription("Profile a dataset: row count, missing and distinct values per column, and value counts of a target column."),
		mcp.WithString("dataset_path", mcp.Description("Path to the dataset."), mcp.Required()),
		mcp.WithString("target", mcp.Description("Column whose value counts are reported.")),
	), h.handleExploreDataset)

	// --- 3. Tool: list_metrics ---
	s.AddTool(mcp.NewTool("list_metrics",
		mcp.WithDescription("List the fairness metric catalog with formulas and required columns."),
	), h.handleListMetrics)

	return s
}

// StartMCPServer starts the Fairspot MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
