package cron

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/services/points"
	"github.com/poultryops/settlement-service/pkg/observability"
)

// Handler serves the scheduled jobs invoked by an external scheduler.
type Handler struct {
	engine     *points.Engine
	logger     *zap.Logger
	cronSecret string
}

func NewHandler(engine *points.Engine, logger *zap.Logger, cronSecret string) *Handler {
	return &Handler{
		engine:     engine,
		logger:     logger,
		cronSecret: cronSecret,
	}
}

// ScanRequest is the optional JSON body for cron endpoints.
type ScanRequest struct {
	Date *string `json:"date,omitempty"` // YYYY-MM-DD
}

// ScanResponse is returned by both cron endpoints.
type ScanResponse struct {
	Success     bool   `json:"success"`
	Issued      int    `json:"issued"`
	ProcessedAt string `json:"processed_at"`
	Error       string `json:"error,omitempty"`
}

// VarianceScan handles POST /cron/variance-scan.
// Scans the trailing window for staff with repeated negative variances
// and issues penalty point entries.
func (h *Handler) VarianceScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized variance scan attempt",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	asOf, ok := h.parseDate(w, r, time.Now().UTC())
	if !ok {
		return
	}

	issued, err := h.engine.ScanRepeatedNegative(r.Context(), asOf)
	if err != nil {
		observability.RecordCronRun("variance_scan", "failed")
		h.logger.Error("Variance scan failed", zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, ScanResponse{
			Success:     false,
			ProcessedAt: time.Now().Format(time.RFC3339),
			Error:       err.Error(),
		})
		return
	}

	observability.RecordCronRun("variance_scan", "success")
	h.logger.Info("Variance scan completed",
		zap.Time("as_of", asOf),
		zap.Int("issued", issued),
	)
	h.respondJSON(w, http.StatusOK, ScanResponse{
		Success:     true,
		Issued:      issued,
		ProcessedAt: time.Now().Format(time.RFC3339),
	})
}

// MissedSettlements handles POST /cron/missed-settlements.
// Issues penalty entries for shops that had no settlement on the given
// date. Defaults to yesterday so the scan runs after the day closes.
func (h *Handler) MissedSettlements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized missed settlement scan attempt",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	date, ok := h.parseDate(w, r, time.Now().UTC().AddDate(0, 0, -1))
	if !ok {
		return
	}

	issued, err := h.engine.ScanMissedSettlements(r.Context(), date)
	if err != nil {
		observability.RecordCronRun("missed_settlements", "failed")
		h.logger.Error("Missed settlement scan failed", zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, ScanResponse{
			Success:     false,
			ProcessedAt: time.Now().Format(time.RFC3339),
			Error:       err.Error(),
		})
		return
	}

	observability.RecordCronRun("missed_settlements", "success")
	h.logger.Info("Missed settlement scan completed",
		zap.Time("date", date),
		zap.Int("issued", issued),
	)
	h.respondJSON(w, http.StatusOK, ScanResponse{
		Success:     true,
		Issued:      issued,
		ProcessedAt: time.Now().Format(time.RFC3339),
	})
}

// parseDate reads the optional body date, falling back to def.
func (h *Handler) parseDate(w http.ResponseWriter, r *http.Request, def time.Time) (time.Time, bool) {
	date := time.Date(def.Year(), def.Month(), def.Day(), 0, 0, 0, 0, time.UTC)

	var req ScanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return time.Time{}, false
		}
	}
	if req.Date != nil && *req.Date != "" {
		parsed, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid date format: %v", err))
			return time.Time{}, false
		}
		date = parsed
	}
	return date, true
}

// authenticateRequest verifies the cron request is authorized. Secrets are
// compared in constant time.
func (h *Handler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	secret := []byte(h.cronSecret)

	if header := r.Header.Get("X-Cron-Secret"); header != "" &&
		subtle.ConstantTimeCompare([]byte(header), secret) == 1 {
		return true
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") &&
		subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, "Bearer ")), secret) == 1 {
		return true
	}

	return false
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, resp ScanResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
