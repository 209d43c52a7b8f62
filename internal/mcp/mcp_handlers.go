package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/fairspot/core"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

func (h *toolHandler) handleComputeFairness(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if err := applyAuditArgs(cfg, request); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid fairness parameters: %v", err)), nil
	}

	result, _, err := core.GetAuditResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("audit failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleExploreDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	path, err := contract.ResolveDatasetPath(request.GetString("dataset_path", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid dataset: %v", err)), nil
	}
	cfg.DatasetPath = path
	cfg.Target = strings.TrimSpace(request.GetString("target", ""))

	profile, err := core.GetProfile(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("exploration failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(profile, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListMetrics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonData, _ := json.MarshalIndent(schema.Catalog, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// applyAuditArgs overlays tool arguments on a cloned base config.
func applyAuditArgs(cfg *contract.Config, request mcp.CallToolRequest) error {
	path, err := contract.ResolveDatasetPath(request.GetString("dataset_path", ""))
	if err != nil {
		return err
	}
	cfg.DatasetPath = path

	attrs := contract.SplitList(request.GetString("attributes", ""))
	if len(attrs) == 0 {
		return fmt.Errorf("attributes is required")
	}
	cfg.Engine.Attributes = attrs

	if v := request.GetString("truth", ""); v != "" {
		cfg.TruthColumn = strings.TrimSpace(v)
	}
	if v := request.GetString("prediction", ""); v != "" {
		cfg.PredictionColumn = strings.TrimSpace(v)
	}
	if cfg.TruthColumn == "" && cfg.PredictionColumn == "" {
		return fmt.Errorf("truth or prediction is required")
	}
	if v := request.GetString("positive_class", ""); v != "" {
		cfg.Engine.PositiveClass = strings.TrimSpace(v)
	}
	if v := request.GetString("control", ""); v != "" {
		cfg.Engine.Control = strings.TrimSpace(v)
	}
	if v := request.GetString("reference", ""); v != "" {
		cfg.Engine.Pairing = schema.ReferencePairing(strings.TrimSpace(v))
		cfg.Engine.Pairings = nil
	}

	if v := request.GetString("metrics", ""); v != "" {
		metrics, err := contract.ParseMetrics(v)
		if err != nil {
			return err
		}
		cfg.Engine.Metrics = metrics
	} else {
		pairwise := cfg.Engine.Pairing.Kind != schema.PairingNone || len(cfg.Engine.Pairings) > 0
		cfg.Engine.Metrics = contract.DefaultMetrics(cfg.TruthColumn != "", cfg.PredictionColumn != "", pairwise)
	}

	cfg.Engine = core.ScopeOverrides(cfg.Engine)

	// The base metric may not be computed for this request's columns.
	metric, err := contract.ResolveVerdictMetric(request.GetString("verdict_metric", ""), cfg.PredictionColumn != "")
	if err != nil {
		return err
	}
	cfg.VerdictMetric = metric
	return nil
}
