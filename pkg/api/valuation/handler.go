// Package valuation exposes the computation engine over HTTP. Handlers
// are thin: decode the request, run the engine, encode the result. All
// financial logic lives under pkg/core.
package valuation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"glassbox_valuation/pkg/core/audit"
	"glassbox_valuation/pkg/core/montecarlo"
	"glassbox_valuation/pkg/core/scenario"
	"glassbox_valuation/pkg/core/sensitivity"
	"glassbox_valuation/pkg/core/sotp"
	"glassbox_valuation/pkg/core/strategy"
	"glassbox_valuation/pkg/models"
)

var logger = zap.NewNop()

// InitHandler wires the package logger. Call once at startup.
func InitHandler(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// RunRequest is the wire format of one valuation run.
type RunRequest struct {
	Strategy   string                 `json:"strategy"`
	Snapshot   models.CompanySnapshot `json:"snapshot"`
	Parameters models.Parameters      `json:"parameters"`
	WithAudit  bool                   `json:"with_audit"`
}

// RunResponse wraps the result with the request correlation id.
type RunResponse struct {
	RunID  string                 `json:"run_id"`
	Result models.ValuationResult `json:"result"`
}

type errorResponse struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// HandleRun executes one strategy for one snapshot/parameter pair.
func HandleRun(w http.ResponseWriter, r *http.Request) {
	if !allowCORS(w, r) {
		return
	}
	runID := uuid.NewString()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, runID, http.StatusBadRequest, err)
		return
	}

	params, err := models.NewParameters(req.Parameters)
	if err != nil {
		writeError(w, runID, http.StatusBadRequest, err)
		return
	}

	req.Snapshot.Ticker = strings.ToUpper(req.Snapshot.Ticker)
	log := logger.With(
		zap.String("run_id", runID),
		zap.String("ticker", req.Snapshot.Ticker),
		zap.String("strategy", req.Strategy),
	)

	strat, err := strategy.Get(req.Strategy)
	if err != nil {
		writeError(w, runID, http.StatusBadRequest, err)
		return
	}

	result, err := strat.Execute(&req.Snapshot, params)
	if err != nil {
		log.Warn("valuation failed", zap.Error(err))
		writeError(w, runID, statusFor(err), err)
		return
	}

	if params.MonteCarlo.Enabled {
		result, err = montecarlo.Enrich(result, &req.Snapshot, params, strat.Execute)
		if err != nil {
			log.Warn("simulation failed", zap.Error(err))
			writeError(w, runID, statusFor(err), err)
			return
		}
	}

	if sc, warnings := scenario.Run(&req.Snapshot, params, strat.Execute); sc != nil {
		result = result.WithScenarios(*sc)
		result.Warnings = append(result.Warnings, warnings...)
	}

	if sens := sensitivity.Run(result, &req.Snapshot, params, strat.Execute); sens != nil {
		result = result.WithSensitivity(*sens)
	}

	if req.WithAudit {
		result = result.WithAudit(audit.Score(&req.Snapshot, params, result))
	}

	log.Info("valuation complete",
		zap.Float64("intrinsic_value", result.IntrinsicValue),
		zap.Float64("upside_pct", result.UpsidePct),
		zap.Int("steps", len(result.Steps)),
	)
	writeJSON(w, http.StatusOK, RunResponse{RunID: runID, Result: result})
}

// HandleSOTP runs the sum-of-the-parts aggregation.
func HandleSOTP(w http.ResponseWriter, r *http.Request) {
	if !allowCORS(w, r) {
		return
	}
	runID := uuid.NewString()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, runID, http.StatusBadRequest, err)
		return
	}
	params, err := models.NewParameters(req.Parameters)
	if err != nil {
		writeError(w, runID, http.StatusBadRequest, err)
		return
	}

	req.Snapshot.Ticker = strings.ToUpper(req.Snapshot.Ticker)
	result, err := sotp.Valuate(&req.Snapshot, params)
	if err != nil {
		writeError(w, runID, statusFor(err), err)
		return
	}
	if req.WithAudit {
		result = result.WithAudit(audit.Score(&req.Snapshot, params, result))
	}

	logger.Info("sotp complete",
		zap.String("run_id", runID),
		zap.String("ticker", req.Snapshot.Ticker),
		zap.Float64("intrinsic_value", result.IntrinsicValue),
	)
	writeJSON(w, http.StatusOK, RunResponse{RunID: runID, Result: result})
}

// HandleStrategies lists the registered strategy names.
func HandleStrategies(w http.ResponseWriter, r *http.Request) {
	if !allowCORS(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"strategies": strategy.Names()})
}

func allowCORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	return true
}

// statusFor maps the engine error taxonomy onto HTTP codes. Every kind
// is a client-side problem except the unexpected remainder.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrModelDivergence):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrMissingData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func kindFor(err error) string {
	switch {
	case errors.Is(err, models.ErrModelDivergence):
		return "MODEL_DIVERGENCE"
	case errors.Is(err, models.ErrMissingData):
		return "MISSING_DATA"
	case errors.Is(err, models.ErrInvalidInput):
		return "INVALID_INPUT"
	default:
		return "INTERNAL"
	}
}

func writeError(w http.ResponseWriter, runID string, status int, err error) {
	writeJSON(w, status, errorResponse{RunID: runID, Kind: kindFor(err), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
