package dto

import "net/http"

// API error codes, format ERR_<DESCRIPTION>. Every code a handler can
// emit appears in ErrorCodeHTTPStatus.
const (
	ErrCodeInternal = "ERR_INTERNAL"

	// ErrCodeValidation carries per-field binding failures
	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	// Business rule violations: the request was well-formed but the
	// operation is not allowed against the current billing state.
	ErrCodeInvalidState       = "ERR_INVALID_STATE"
	ErrCodeNotBillable        = "ERR_NOT_BILLABLE"
	ErrCodeInsufficientCredit = "ERR_INSUFFICIENT_CREDIT"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeNotBillable:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientCredit: http.StatusUnprocessableEntity,
}

// GetHTTPStatus resolves an error code to its HTTP status, defaulting
// to 500 for codes with no mapping.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping translates domain error codes into API codes.
// The INVALID_* family of input validation codes all collapse into
// ERR_INVALID_INPUT; state-dependent rejections keep distinct codes.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"INVALID_STATE":         ErrCodeInvalidState,
	"RESOURCE_NOT_BILLABLE": ErrCodeNotBillable,
	"INSUFFICIENT_CREDIT":   ErrCodeInsufficientCredit,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_CUSTOMER":      ErrCodeInvalidInput,
	"INVALID_PROJECT":       ErrCodeInvalidInput,
	"INVALID_RESOURCE":      ErrCodeInvalidInput,
	"INVALID_COMPONENT":     ErrCodeInvalidInput,
	"INVALID_INVOICE":       ErrCodeInvalidInput,
	"INVALID_CREDIT":        ErrCodeInvalidInput,
	"INVALID_PERIOD":        ErrCodeInvalidInput,
	"INVALID_UNIT":          ErrCodeInvalidInput,
	"INVALID_USAGE":         ErrCodeInvalidInput,
	"INVALID_PAYMENT_TYPE":  ErrCodeInvalidInput,
}

// NormalizeErrorCode converts a domain code to its API code, passing
// unknown codes through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
