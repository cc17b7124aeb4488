package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
)

// Identity headers. Authentication happens upstream; the gateway forwards the
// verified caller in these headers.
const (
	HeaderUserID = "X-User-ID"
	HeaderShopID = "X-Shop-ID"
)

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error onto an HTTP status and writes the envelope.
// Unrecognized errors become opaque 500s; internals never leak to callers.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		logger.Error("unhandled error", zap.Error(err))
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:    string(domain.ErrorCodeInternalError),
			Message: "internal server error",
		})
		return
	}

	status := statusFor(err, de.Code)
	if status >= 500 {
		logger.Error("internal domain error", zap.String("code", string(de.Code)), zap.Error(err))
	}
	WriteJSON(w, status, ErrorResponse{
		Code:    string(de.Code),
		Message: de.Message,
		Details: de.Details,
	})
}

func statusFor(err error, code domain.ErrorCode) int {
	switch {
	case code == domain.ErrorCodeAuthForbidden:
		return http.StatusForbidden
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsConflictError(err),
		code == domain.ErrorCodeSettlementInvalidState,
		code == domain.ErrorCodeTransferInvalidState:
		return http.StatusConflict
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// UserID extracts the caller identity header
func UserID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return uuid.Nil, domain.ErrValidationMissingField.WithDetail("header", HeaderUserID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithDetail("header", HeaderUserID)
	}
	return id, nil
}

// ShopID extracts the shop context header
func ShopID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(HeaderShopID)
	if raw == "" {
		return uuid.Nil, domain.ErrValidationMissingField.WithDetail("header", HeaderShopID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithDetail("header", HeaderShopID)
	}
	return id, nil
}

// PathUUID parses a UUID path parameter already extracted by the router
func PathUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithDetail("param", name)
	}
	return id, nil
}

// DecodeBody decodes a JSON request body, rejecting unknown fields
func DecodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidationFailed.WithDetail("body", err.Error())
	}
	return nil
}
