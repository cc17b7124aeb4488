package settlement

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/handlers/httputil"
	settlementsvc "github.com/poultryops/settlement-service/internal/services/settlement"
)

// Handler serves the settlement and variance endpoints
type Handler struct {
	service *settlementsvc.Service
	logger  *zap.Logger
}

func NewHandler(service *settlementsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the settlement endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Route("/settlements", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.CreateDraft)
		r.Get("/expected", h.GetExpected)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/submit", h.Submit)
			r.Post("/approve", h.Approve)
			r.Post("/reject", h.Reject)
			r.Post("/lock", h.Lock)
		})
	})
	r.Route("/variances", func(r chi.Router) {
		r.Get("/", h.ListVariances)
		r.Post("/{id}/approve", h.ApproveVariance)
		r.Post("/{id}/deduct", h.DeductVariance)
	})
}

type createDraftRequest struct {
	SettlementDate string `json:"settlement_date"` // YYYY-MM-DD, defaults to today
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
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

	var req createDraftRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	date := time.Now().UTC()
	if req.SettlementDate != "" {
		date, err = time.Parse("2006-01-02", req.SettlementDate)
		if err != nil {
			httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("settlement_date", req.SettlementDate))
			return
		}
	}

	s, err := h.service.CreateDraft(r.Context(), userID, shopID, date)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSettlementResponse(s, nil))
}

func (h *Handler) GetExpected(w http.ResponseWriter, r *http.Request) {
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
	date, err := dateQuery(r, "date")
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	expected, err := h.service.GetExpected(r.Context(), userID, shopID, date)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, expectedResponse{
		Cash:     expected.Cash,
		UPI:      expected.UPI,
		Stock:    expected.Stock.Cells(),
		Partial:  expected.Partial(),
		Warnings: expected.Warnings,
	})
}

type declarationRequest struct {
	Cash           decimal.Decimal    `json:"cash"`
	UPI            decimal.Decimal    `json:"upi"`
	Stock          []domain.StockCell `json:"stock"`
	ExpenseAmount  decimal.Decimal    `json:"expense_amount"`
	ExpenseNotes   string             `json:"expense_notes"`
	SettlementDate string             `json:"settlement_date,omitempty"` // backdate only
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, settlementID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	var req declarationRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	decl := domain.Declaration{
		Cash:          req.Cash,
		UPI:           req.UPI,
		Stock:         domain.FromCells(req.Stock),
		ExpenseAmount: req.ExpenseAmount,
		ExpenseNotes:  req.ExpenseNotes,
	}
	if req.SettlementDate != "" {
		d, err := time.Parse("2006-01-02", req.SettlementDate)
		if err != nil {
			httputil.WriteError(w, h.logger, domain.ErrValidationFailed.WithDetail("settlement_date", req.SettlementDate))
			return
		}
		decl.SettlementDate = d
	}

	s, err := h.service.Submit(r.Context(), userID, settlementID, decl)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSettlementResponse(s, nil))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, settlementID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	s, err := h.service.Approve(r.Context(), userID, settlementID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSettlementResponse(s, nil))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, settlementID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	var req rejectRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	s, err := h.service.Reject(r.Context(), userID, settlementID, req.Reason)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSettlementResponse(s, nil))
}

func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	userID, settlementID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	s, err := h.service.Lock(r.Context(), userID, settlementID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSettlementResponse(s, nil))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, settlementID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	s, variances, err := h.service.Get(r.Context(), userID, settlementID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSettlementResponse(s, variances))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	filter := domain.SettlementFilter{
		Status: domain.SettlementStatus(r.URL.Query().Get("status")),
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	}
	if raw := r.Header.Get(httputil.HeaderShopID); raw != "" {
		shopID, err := httputil.ShopID(r)
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		filter.ShopID = shopID
	}
	if d, err := dateQueryOptional(r, "from"); err == nil && !d.IsZero() {
		filter.FromDate = d
	}
	if d, err := dateQueryOptional(r, "to"); err == nil && !d.IsZero() {
		filter.ToDate = d
	}

	settlements, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	out := make([]settlementResponse, 0, len(settlements))
	for i := range settlements {
		out = append(out, toSettlementResponse(&settlements[i], nil))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListVariances(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	filter := domain.VarianceFilter{
		Status:       domain.VarianceStatus(r.URL.Query().Get("status")),
		VarianceType: domain.VarianceType(r.URL.Query().Get("type")),
		Limit:        intQuery(r, "limit"),
		Offset:       intQuery(r, "offset"),
	}
	if raw := r.URL.Query().Get("settlement_id"); raw != "" {
		id, err := httputil.PathUUID(raw, "settlement_id")
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		filter.SettlementID = id
	}
	if raw := r.Header.Get(httputil.HeaderShopID); raw != "" {
		shopID, err := httputil.ShopID(r)
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		filter.ShopID = shopID
	}

	records, err := h.service.ListVariances(r.Context(), userID, filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	out := make([]varianceResponse, 0, len(records))
	for i := range records {
		out = append(out, toVarianceResponse(&records[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type resolveVarianceRequest struct {
	Notes string `json:"notes,omitempty"`
}

func (h *Handler) ApproveVariance(w http.ResponseWriter, r *http.Request) {
	h.resolveVariance(w, r, domain.VarianceStatusApproved)
}

func (h *Handler) DeductVariance(w http.ResponseWriter, r *http.Request) {
	h.resolveVariance(w, r, domain.VarianceStatusDeducted)
}

func (h *Handler) resolveVariance(w http.ResponseWriter, r *http.Request, status domain.VarianceStatus) {
	userID, varianceID, err := h.identityAndID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	var req resolveVarianceRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeBody(r, &req); err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
	}
	v, err := h.service.ResolveVariance(r.Context(), userID, varianceID, status, req.Notes)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVarianceResponse(v))
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
