package transfer

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
	transfersvc "github.com/poultryops/settlement-service/internal/services/transfer"
)

// Handler serves the stock transfer endpoints
type Handler struct {
	service *transfersvc.Service
	logger  *zap.Logger
}

func NewHandler(service *transfersvc.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the transfer endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Route("/transfers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/receive", h.Receive)
			r.Post("/approve", h.Approve)
			r.Post("/reject", h.Reject)
		})
	})
}

type createRequest struct {
	ToShop        uuid.UUID       `json:"to_shop"`
	BirdType      string          `json:"bird_type"`
	InventoryType string          `json:"inventory_type"`
	Weight        decimal.Decimal `json:"weight"`
	BirdCount     int             `json:"bird_count,omitempty"`
	TransferDate  string          `json:"transfer_date,omitempty"` // YYYY-MM-DD
	Notes         string          `json:"notes,omitempty"`
}

type transferResponse struct {
	ID              uuid.UUID       `json:"id"`
	FromShop        uuid.UUID       `json:"from_shop"`
	ToShop          uuid.UUID       `json:"to_shop"`
	BirdType        string          `json:"bird_type"`
	InventoryType   string          `json:"inventory_type"`
	Weight          decimal.Decimal `json:"weight"`
	BirdCount       int             `json:"bird_count,omitempty"`
	TransferDate    string          `json:"transfer_date"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	InitiatedBy     uuid.UUID       `json:"initiated_by"`
	ReceivedBy      *uuid.UUID      `json:"received_by,omitempty"`
	ReceivedAt      *time.Time      `json:"received_at,omitempty"`
	ApprovedBy      *uuid.UUID      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	fromShop, err := httputil.ShopID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	var req createRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	t := &domain.StockTransfer{
		FromShop:      fromShop,
		ToShop:        req.ToShop,
		BirdType:      domain.BirdType(req.BirdType),
		InventoryType: domain.InventoryType(req.InventoryType),
		Weight:        req.Weight,
		BirdCount:     req.BirdCount,
		Notes:         req.Notes,
	}
	if req.TransferDate != "" {
		d, err := time.Parse("2006-01-02", req.TransferDate)
		if err != nil {
			httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("transfer_date", req.TransferDate))
			return
		}
		t.TransferDate = d
	}

	created, err := h.service.Create(r.Context(), userID, t)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, transferID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	t, err := h.service.Get(r.Context(), userID, transferID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := domain.TransferFilter{
		Status: domain.TransferStatus(q.Get("status")),
	}
	if raw := q.Get("from_shop"); raw != "" {
		id, err := httputil.PathUUID(raw, "from_shop")
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		filter.FromShop = id
	}
	if raw := q.Get("to_shop"); raw != "" {
		id, err := httputil.PathUUID(raw, "to_shop")
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		filter.ToShop = id
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}

	transfers, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	out := make([]transferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, toResponse(&transfers[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	userID, transferID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	t, err := h.service.Receive(r.Context(), userID, transferID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, transferID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	t, err := h.service.Approve(r.Context(), userID, transferID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(t))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, transferID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	var req rejectRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	t, err := h.service.Reject(r.Context(), userID, transferID, req.Reason)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) identityAndID(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := httputil.UserID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, id, nil
}

func toResponse(t *domain.StockTransfer) transferResponse {
	return transferResponse{
		ID:              t.ID,
		FromShop:        t.FromShop,
		ToShop:          t.ToShop,
		BirdType:        string(t.BirdType),
		InventoryType:   string(t.InventoryType),
		Weight:          t.Weight,
		BirdCount:       t.BirdCount,
		TransferDate:    t.TransferDate.Format("2006-01-02"),
		Status:          string(t.Status),
		Notes:           t.Notes,
		InitiatedBy:     t.InitiatedBy,
		ReceivedBy:      t.ReceivedBy,
		ReceivedAt:      t.ReceivedAt,
		ApprovedBy:      t.ApprovedBy,
		ApprovedAt:      t.ApprovedAt,
		RejectionReason: t.RejectionReason,
		CreatedAt:       t.CreatedAt,
	}
}
