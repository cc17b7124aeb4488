package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Authorization errors (AUTH_*)
	ErrorCodeAuthForbidden ErrorCode = "AUTH_FORBIDDEN"

	// Settlement errors (SETTLEMENT_*)
	ErrorCodeSettlementNotFound        ErrorCode = "SETTLEMENT_NOT_FOUND"
	ErrorCodeSettlementDuplicate       ErrorCode = "SETTLEMENT_DUPLICATE"
	ErrorCodeSettlementInvalidState    ErrorCode = "SETTLEMENT_INVALID_STATE"
	ErrorCodeSettlementAlreadyApproved ErrorCode = "SETTLEMENT_ALREADY_APPROVED"

	// Variance errors (VARIANCE_*)
	ErrorCodeVarianceNotFound        ErrorCode = "VARIANCE_NOT_FOUND"
	ErrorCodeVarianceAlreadyResolved ErrorCode = "VARIANCE_ALREADY_RESOLVED"
	ErrorCodeVarianceWrongSign       ErrorCode = "VARIANCE_WRONG_SIGN"

	// Transfer errors (TRANSFER_*)
	ErrorCodeTransferNotFound        ErrorCode = "TRANSFER_NOT_FOUND"
	ErrorCodeTransferInvalid         ErrorCode = "TRANSFER_INVALID"
	ErrorCodeTransferInvalidState    ErrorCode = "TRANSFER_INVALID_STATE"
	ErrorCodeTransferAlreadyResolved ErrorCode = "TRANSFER_ALREADY_RESOLVED"

	// Aggregation warnings (AGGREGATION_*)
	ErrorCodeAggregationPartialFailure ErrorCode = "AGGREGATION_PARTIAL_FAILURE"

	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Wastage errors (WASTAGE_*)
	ErrorCodeWastageRateNotFound ErrorCode = "WASTAGE_RATE_NOT_FOUND"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error carrying an extra detail field.
// Copying keeps the package-level sentinel instances immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// Is matches on the error code so sentinel comparisons survive WithDetail copies
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeSettlementNotFound ||
		code == ErrorCodeVarianceNotFound ||
		code == ErrorCodeTransferNotFound ||
		code == ErrorCodeWastageRateNotFound
}

// IsConflictError checks if an error is a lost-race or duplicate condition
func IsConflictError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeSettlementDuplicate ||
		code == ErrorCodeSettlementAlreadyApproved ||
		code == ErrorCodeVarianceAlreadyResolved ||
		code == ErrorCodeTransferAlreadyResolved
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField ||
		code == ErrorCodeTransferInvalid
}

// Structured error instances
var (
	ErrForbidden = NewDomainError(ErrorCodeAuthForbidden, "caller is not authorized for this action")

	ErrSettlementNotFound     = NewDomainError(ErrorCodeSettlementNotFound, "settlement not found")
	ErrDuplicateSettlement    = NewDomainError(ErrorCodeSettlementDuplicate, "settlement already exists for this shop and date")
	ErrSettlementInvalidState = NewDomainError(ErrorCodeSettlementInvalidState, "settlement is in invalid state for this operation")
	ErrAlreadyApproved        = NewDomainError(ErrorCodeSettlementAlreadyApproved, "settlement was already resolved by a concurrent caller")

	ErrVarianceNotFound        = NewDomainError(ErrorCodeVarianceNotFound, "variance record not found")
	ErrVarianceAlreadyResolved = NewDomainError(ErrorCodeVarianceAlreadyResolved, "variance record is already resolved")
	ErrVarianceWrongSign       = NewDomainError(ErrorCodeVarianceWrongSign, "resolution action does not match variance sign")

	ErrTransferNotFound        = NewDomainError(ErrorCodeTransferNotFound, "stock transfer not found")
	ErrInvalidTransfer         = NewDomainError(ErrorCodeTransferInvalid, "malformed transfer request")
	ErrTransferInvalidState    = NewDomainError(ErrorCodeTransferInvalidState, "transfer is in invalid state for this operation")
	ErrTransferAlreadyResolved = NewDomainError(ErrorCodeTransferAlreadyResolved, "transfer was already resolved by a concurrent caller")

	ErrPartialAggregationFailure = NewDomainError(ErrorCodeAggregationPartialFailure, "expected values are partial; some categories degraded to zero")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrWastageRateNotFound = NewDomainError(ErrorCodeWastageRateNotFound, "no wastage rate effective for this date")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
