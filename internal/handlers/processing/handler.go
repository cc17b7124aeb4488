package processing

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/handlers/httputil"
	processingsvc "github.com/poultryops/settlement-service/internal/services/processing"
)

// Handler serves processing batches, wastage rates and ledger reads
type Handler struct {
	service *processingsvc.Service
	logger  *zap.Logger
}

func NewHandler(service *processingsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the processing endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Post("/processing", h.RecordBatch)
	r.Route("/wastage-rates", func(r chi.Router) {
		r.Get("/", h.ListRates)
		r.Post("/", h.SetRate)
	})
	r.Get("/stock", h.StockOnHand)
	r.Get("/ledger", h.LedgerHistory)
}

type batchRequest struct {
	BirdType      string          `json:"bird_type"`
	Target        string          `json:"target_inventory_type"`
	BirdCount     int             `json:"bird_count"`
	LiveWeight    decimal.Decimal `json:"live_weight"`
	ProcessedDate string          `json:"processed_date,omitempty"` // YYYY-MM-DD
	Notes         string          `json:"notes,omitempty"`

	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type batchResponse struct {
	BatchID           uuid.UUID       `json:"batch_id"`
	WastagePercentage decimal.Decimal `json:"wastage_percentage"`
	InputWeight       decimal.Decimal `json:"input_weight"`
	WastageWeight     decimal.Decimal `json:"wastage_weight"`
	OutputWeight      decimal.Decimal `json:"output_weight"`
	Replayed          bool            `json:"replayed,omitempty"`
}

func (h *Handler) RecordBatch(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	shopID, err := httputil.ShopID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	var req batchRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	svcReq := processingsvc.Request{
		ShopID:     shopID,
		BirdType:   domain.BirdType(req.BirdType),
		Target:     domain.InventoryType(req.Target),
		BirdCount:  req.BirdCount,
		LiveWeight: req.LiveWeight,
		Notes:      req.Notes,

		IdempotencyKey: req.IdempotencyKey,
	}
	if req.ProcessedDate != "" {
		d, err := time.Parse("2006-01-02", req.ProcessedDate)
		if err != nil {
			httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("processed_date", req.ProcessedDate))
			return
		}
		svcReq.ProcessedDate = d
	}

	result, err := h.service.RecordBatch(r.Context(), userID, svcReq)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, batchResponse{
		BatchID:           result.BatchID,
		WastagePercentage: result.Yield.WastagePercentage,
		InputWeight:       result.Yield.InputWeight,
		WastageWeight:     result.Yield.WastageWeight,
		OutputWeight:      result.Yield.OutputWeight,
		Replayed:          result.Replayed,
	})
}

type rateRequest struct {
	BirdType      string          `json:"bird_type"`
	Target        string          `json:"target_inventory_type"`
	Percentage    decimal.Decimal `json:"percentage"`
	EffectiveDate string          `json:"effective_date,omitempty"`
}

type rateResponse struct {
	ID            uuid.UUID       `json:"id"`
	BirdType      string          `json:"bird_type"`
	Target        string          `json:"target_inventory_type"`
	Percentage    decimal.Decimal `json:"percentage"`
	EffectiveDate string          `json:"effective_date"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (h *Handler) SetRate(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	var req rateRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	rate := &domain.WastageRate{
		BirdType:            domain.BirdType(req.BirdType),
		TargetInventoryType: domain.InventoryType(req.Target),
		Percentage:          req.Percentage,
	}
	if req.EffectiveDate != "" {
		d, err := time.Parse("2006-01-02", req.EffectiveDate)
		if err != nil {
			httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("effective_date", req.EffectiveDate))
			return
		}
		rate.EffectiveDate = d
	}

	created, err := h.service.SetWastageRate(r.Context(), userID, rate)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRateResponse(created))
}

func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	if _, err := httputil.UserID(r); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	birdType := domain.BirdType(r.URL.Query().Get("bird_type"))
	if !birdType.Valid() {
		httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("bird_type", string(birdType)))
		return
	}

	rates, err := h.service.ListWastageRates(r.Context(), birdType)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	out := make([]rateResponse, 0, len(rates))
	for i := range rates {
		out = append(out, toRateResponse(&rates[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type stockResponse struct {
	BirdType      string          `json:"bird_type"`
	InventoryType string          `json:"inventory_type"`
	Weight        decimal.Decimal `json:"weight"`
	BirdCount     int             `json:"bird_count"`
}

func (h *Handler) StockOnHand(w http.ResponseWriter, r *http.Request) {
	if _, err := httputil.UserID(r); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	shopID, err := httputil.ShopID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	key := domain.StockKey{
		BirdType:      domain.BirdType(r.URL.Query().Get("bird_type")),
		InventoryType: domain.InventoryType(r.URL.Query().Get("inventory_type")),
	}
	if err := key.Validate(); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	weight, count, err := h.service.StockOnHand(r.Context(), shopID, key)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stockResponse{
		BirdType:      string(key.BirdType),
		InventoryType: string(key.InventoryType),
		Weight:        weight,
		BirdCount:     count,
	})
}

type ledgerEntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	BirdType        string          `json:"bird_type"`
	InventoryType   string          `json:"inventory_type"`
	QuantityChange  decimal.Decimal `json:"quantity_change"`
	BirdCountChange int             `json:"bird_count_change"`
	Reason          string          `json:"reason"`
	EntryDate       string          `json:"entry_date"`
	RefID           *uuid.UUID      `json:"ref_id,omitempty"`
	RefType         string          `json:"ref_type,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (h *Handler) LedgerHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := httputil.UserID(r); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	shopID, err := httputil.ShopID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("query", "from"))
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("query", "to"))
		return
	}
	limit, offset := 0, 0
	if raw := q.Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		offset, _ = strconv.Atoi(raw)
	}

	entries, err := h.service.LedgerHistory(r.Context(), shopID, from, to, limit, offset)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{
			ID:              e.ID,
			BirdType:        string(e.BirdType),
			InventoryType:   string(e.InventoryType),
			QuantityChange:  e.QuantityChange,
			BirdCountChange: e.BirdCountChange,
			Reason:          string(e.Reason),
			EntryDate:       e.EntryDate.Format("2006-01-02"),
			RefID:           e.RefID,
			RefType:         e.RefType,
			Notes:           e.Notes,
			CreatedAt:       e.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func toRateResponse(rate *domain.WastageRate) rateResponse {
	return rateResponse{
		ID:            rate.ID,
		BirdType:      string(rate.BirdType),
		Target:        string(rate.TargetInventoryType),
		Percentage:    rate.Percentage,
		EffectiveDate: rate.EffectiveDate.Format("2006-01-02"),
		Active:        rate.Active,
		CreatedAt:     rate.CreatedAt,
	}
}
