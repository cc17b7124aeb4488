package points

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/handlers/httputil"
	pointssvc "github.com/poultryops/settlement-service/internal/services/points"
)

// Handler serves the staff points read side and manual adjustments
type Handler struct {
	engine *pointssvc.Engine
	logger *zap.Logger
}

func NewHandler(engine *pointssvc.Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Routes mounts the points endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Route("/points", func(r chi.Router) {
		r.Get("/me", h.Summary)
		r.Get("/history", h.History)
		r.Get("/leaderboard", h.Leaderboard)
		r.Post("/adjust", h.Adjust)
	})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	shopID := uuid.Nil
	if r.Header.Get(httputil.HeaderShopID) != "" {
		shopID, err = httputil.ShopID(r)
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
	}

	summary, err := h.engine.Summary(r.Context(), userID, shopID)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := domain.PointsFilter{UserID: userID}
	if raw := q.Get("user_id"); raw != "" {
		// Viewing another user's history is an owner/admin operation; the
		// engine does not restrict reads, the gateway does
		id, err := httputil.PathUUID(raw, "user_id")
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		filter.UserID = id
	}
	if r.Header.Get(httputil.HeaderShopID) != "" {
		shopID, err := httputil.ShopID(r)
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		filter.ShopID = shopID
	}
	if raw := q.Get("from"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			filter.FromDate = d
		}
	}
	if raw := q.Get("to"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			filter.ToDate = d
		}
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

	entries, err := h.engine.History(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if _, err := httputil.UserID(r); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	shopID := uuid.Nil
	if r.Header.Get(httputil.HeaderShopID) != "" {
		id, err := httputil.ShopID(r)
		if err != nil {
			httputil.WriteError(w, h.logger, err)
			return
		}
		shopID = id
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	rows, err := h.engine.Leaderboard(r.Context(), shopID, limit)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

type adjustRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	ShopID       uuid.UUID `json:"shop_id"`
	PointsChange int       `json:"points_change"`
	Details      string    `json:"details"`
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	actorID, err := httputil.UserID(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	var req adjustRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}

	entry, err := h.engine.AdjustManually(r.Context(), actorID, req.UserID, req.ShopID, req.PointsChange, req.Details)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEntryResponse(entry))
}

type entryResponse struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ShopID        uuid.UUID `json:"shop_id"`
	PointsChange  int       `json:"points_change"`
	Reason        string    `json:"reason"`
	ReasonDetails string    `json:"reason_details,omitempty"`
	RefID         uuid.UUID `json:"ref_id"`
	RefType       string    `json:"ref_type"`
	EffectiveDate string    `json:"effective_date"`
	CreatedAt     time.Time `json:"created_at"`
}

func toEntryResponse(e *domain.StaffPointsEntry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		UserID:        e.UserID,
		ShopID:        e.ShopID,
		PointsChange:  e.PointsChange,
		Reason:        string(e.Reason),
		ReasonDetails: e.ReasonDetails,
		RefID:         e.RefID,
		RefType:       e.RefType,
		EffectiveDate: e.EffectiveDate.Format("2006-01-02"),
		CreatedAt:     e.CreatedAt,
	}
}
