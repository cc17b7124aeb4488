package settlement

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poultryops/settlement-service/internal/domain"
)

type settlementResponse struct {
	ID              uuid.UUID          `json:"id"`
	ShopID          uuid.UUID          `json:"shop_id"`
	SettlementDate  string             `json:"settlement_date"`
	Status          string             `json:"status"`
	DeclaredCash    decimal.Decimal    `json:"declared_cash"`
	DeclaredUPI     decimal.Decimal    `json:"declared_upi"`
	DeclaredStock   []domain.StockCell `json:"declared_stock"`
	ExpenseAmount   decimal.Decimal    `json:"expense_amount"`
	ExpenseNotes    string             `json:"expense_notes,omitempty"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	SubmittedBy     *uuid.UUID         `json:"submitted_by,omitempty"`
	SubmittedAt     *time.Time         `json:"submitted_at,omitempty"`
	ApprovedBy      *uuid.UUID         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty"`
	LockedAt        *time.Time         `json:"locked_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Variances       []varianceResponse `json:"variances,omitempty"`
}

type varianceResponse struct {
	ID            uuid.UUID       `json:"id"`
	SettlementID  uuid.UUID       `json:"settlement_id"`
	Category      string          `json:"category"`
	BirdType      string          `json:"bird_type,omitempty"`
	InventoryType string          `json:"inventory_type,omitempty"`
	VarianceType  string          `json:"variance_type"`
	Expected      decimal.Decimal `json:"expected"`
	Declared      decimal.Decimal `json:"declared"`
	Magnitude     decimal.Decimal `json:"magnitude"`
	Status        string          `json:"status"`
	ResolvedBy    *uuid.UUID      `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type expectedResponse struct {
	Cash     decimal.Decimal    `json:"cash"`
	UPI      decimal.Decimal    `json:"upi"`
	Stock    []domain.StockCell `json:"stock"`
	Partial  bool               `json:"partial"`
	Warnings []string           `json:"warnings,omitempty"`
}

func toSettlementResponse(s *domain.Settlement, variances []domain.VarianceRecord) settlementResponse {
	resp := settlementResponse{
		ID:              s.ID,
		ShopID:          s.ShopID,
		SettlementDate:  s.SettlementDate.Format("2006-01-02"),
		Status:          string(s.Status),
		DeclaredCash:    s.DeclaredCash,
		DeclaredUPI:     s.DeclaredUPI,
		DeclaredStock:   s.DeclaredStock.Cells(),
		ExpenseAmount:   s.ExpenseAmount,
		ExpenseNotes:    s.ExpenseNotes,
		RejectionReason: s.RejectionReason,
		SubmittedBy:     s.SubmittedBy,
		SubmittedAt:     s.SubmittedAt,
		ApprovedBy:      s.ApprovedBy,
		ApprovedAt:      s.ApprovedAt,
		LockedAt:        s.LockedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	for i := range variances {
		resp.Variances = append(resp.Variances, toVarianceResponse(&variances[i]))
	}
	return resp
}

func toVarianceResponse(v *domain.VarianceRecord) varianceResponse {
	return varianceResponse{
		ID:            v.ID,
		SettlementID:  v.SettlementID,
		Category:      string(v.Category),
		BirdType:      string(v.BirdType),
		InventoryType: string(v.InventoryType),
		VarianceType:  string(v.VarianceType),
		Expected:      v.Expected,
		Declared:      v.Declared,
		Magnitude:     v.Magnitude,
		Status:        string(v.Status),
		ResolvedBy:    v.ResolvedBy,
		ResolvedAt:    v.ResolvedAt,
		Notes:         v.Notes,
		CreatedAt:     v.CreatedAt,
	}
}

func dateQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, domain.ErrValidationMissingField.WithDetail("query", name)
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, domain.ErrValidationFailed.WithDetail("query", name)
	}
	return d, nil
}

func dateQueryOptional(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, domain.ErrValidationFailed.WithDetail("query", name)
	}
	return d, nil
}

func intQuery(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
