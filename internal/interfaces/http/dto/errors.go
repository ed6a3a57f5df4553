package dto

import (
	"net/http"

	"github.com/erp/websync/internal/domain/shared"
)

// Error codes returned in the "error.code" field of the response envelope.
// They all use the ERR_ prefix.
const (
	ErrCodeUnknown            = "ERR_UNKNOWN"
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"

	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict also covers a sync of the same resource type already in progress
	ErrCodeConflict = "ERR_CONFLICT"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainCodeMapping maps shared.DomainError codes onto envelope codes
var DomainCodeMapping = map[string]string{
	shared.CodeInvalidInput: ErrCodeInvalidInput,
	shared.CodeNotFound:     ErrCodeNotFound,
	shared.CodeConflict:     ErrCodeConflict,
	shared.CodeUnavailable:  ErrCodeServiceUnavailable,
	"VALIDATION_ERROR":      ErrCodeValidation,
	"BAD_REQUEST":           ErrCodeBadRequest,
	"INTERNAL_ERROR":        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain code to its envelope code. Codes that
// are already envelope codes, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if mapped, ok := DomainCodeMapping[code]; ok {
		return mapped
	}
	return code
}
