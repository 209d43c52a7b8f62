package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/huangsam/fairspot/core"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/ingest"
	"github.com/huangsam/fairspot/schema"
)

// AuditRequest is the body of POST /v1/audit.
type AuditRequest struct {
	Records          json.RawMessage     `json:"records"`
	Truth            string              `json:"truth,omitempty"`
	Prediction       string              `json:"prediction,omitempty"`
	Favorable        string              `json:"favorable,omitempty"`
	Config           schema.EngineConfig `json:"config"`
	VerdictMetric    schema.MetricName   `json:"verdict_metric,omitempty"`
	VerdictThreshold float64             `json:"verdict_threshold,omitempty"`
}

// Bind implements render.Binder.
func (a *AuditRequest) Bind(_ *http.Request) error {
	if len(bytes.TrimSpace(a.Records)) == 0 {
		return errors.New("records is required")
	}
	if a.Truth == "" && a.Prediction == "" {
		return errors.New("truth or prediction is required")
	}
	if a.VerdictThreshold < 0 || a.VerdictThreshold > 1 {
		return fmt.Errorf("verdict_threshold must be in (0, 1] (received %.2f)", a.VerdictThreshold)
	}
	metric, err := contract.ResolveVerdictMetric(string(a.VerdictMetric), strings.TrimSpace(a.Prediction) != "")
	if err != nil {
		return err
	}
	a.VerdictMetric = metric
	return nil
}

// ErrResponse is the JSON body of every error reply.
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	Kind           string `json:"kind"`
	Message        string `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errInvalidRequest(err error) *ErrResponse {
	return &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Kind: "invalid_request", Message: err.Error()}
}

// errAudit maps engine errors onto status codes.
func errAudit(err error) *ErrResponse {
	var cfgErr *schema.ConfigurationError
	var shapeErr *schema.InputShapeError
	switch {
	case errors.As(err, &cfgErr):
		return &ErrResponse{HTTPStatusCode: http.StatusBadRequest, Kind: "configuration_error", Message: cfgErr.Error()}
	case errors.As(err, &shapeErr):
		return &ErrResponse{HTTPStatusCode: http.StatusUnprocessableEntity, Kind: "input_shape_error", Message: shapeErr.Error()}
	default:
		return &ErrResponse{HTTPStatusCode: http.StatusInternalServerError, Kind: "internal_error", Message: err.Error()}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, schema.Catalog)
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	var store contract.RunStore
	if s.mgr != nil {
		store = s.mgr.GetRunStore()
	}
	if store == nil {
		_ = render.Render(w, r, &ErrResponse{HTTPStatusCode: http.StatusServiceUnavailable, Kind: "unavailable", Message: "run tracking is disabled"})
		return
	}
	status, err := store.GetStatus()
	if err != nil {
		_ = render.Render(w, r, &ErrResponse{HTTPStatusCode: http.StatusInternalServerError, Kind: "internal_error", Message: err.Error()})
		return
	}
	render.JSON(w, r, status)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req AuditRequest
	if err := render.Bind(r, &req); err != nil {
		s.audits.WithLabelValues(outcomeInvalid).Inc()
		_ = render.Render(w, r, errInvalidRequest(err))
		return
	}

	cfg := s.auditConfig(&req)
	table, err := ingest.Read(bytes.NewReader(req.Records), "json", ingest.Options{})
	if err != nil {
		s.audits.WithLabelValues(outcomeInvalid).Inc()
		_ = render.Render(w, r, errInvalidRequest(fmt.Errorf("invalid records: %w", err)))
		return
	}
	records, err := ingest.ToRecords(table, core.MappingFor(cfg))
	if err != nil {
		s.audits.WithLabelValues(outcomeInvalid).Inc()
		_ = render.Render(w, r, errInvalidRequest(err))
		return
	}

	source := "http:" + middleware.GetReqID(r.Context())
	result, err := core.AuditRecords(r.Context(), cfg, s.mgr, source, records)
	if err != nil {
		resp := errAudit(err)
		outcome := outcomeInvalid
		if resp.HTTPStatusCode == http.StatusInternalServerError {
			outcome = outcomeError
		}
		s.audits.WithLabelValues(outcome).Inc()
		slog.Debug("audit rejected", "source", source, "status", resp.HTTPStatusCode, "error", err)
		_ = render.Render(w, r, resp)
		return
	}

	s.audits.WithLabelValues(outcomeOK).Inc()
	slog.Info("audit served", "source", source, "records", result.RecordCount, "results", len(result.Results))
	render.JSON(w, r, result)
}

// auditConfig overlays a request on the server's base config.
func (s *Server) auditConfig(req *AuditRequest) *contract.Config {
	cfg := s.cfg.Clone()
	cfg.Engine = req.Config
	cfg.TruthColumn = strings.TrimSpace(req.Truth)
	cfg.PredictionColumn = strings.TrimSpace(req.Prediction)
	cfg.Favorable = strings.TrimSpace(req.Favorable)

	if len(cfg.Engine.Metrics) == 0 {
		pairwise := cfg.Engine.Pairing.Kind != schema.PairingNone || len(cfg.Engine.Pairings) > 0
		cfg.Engine.Metrics = contract.DefaultMetrics(cfg.TruthColumn != "", cfg.PredictionColumn != "", pairwise)
	}

	// Bind has already resolved the metric.
	cfg.VerdictMetric = req.VerdictMetric
	if req.VerdictThreshold > 0 {
		cfg.VerdictThreshold = req.VerdictThreshold
	}
	return cfg
}
