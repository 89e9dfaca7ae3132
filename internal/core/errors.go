package core

import "fmt"

type ErrorCode string

const (
	ErrBadRequest ErrorCode = "AUDIT_BAD_REQUEST"
	ErrNotFound   ErrorCode = "AUDIT_NOT_FOUND"
	ErrInternal   ErrorCode = "AUDIT_INTERNAL"

	// Capture-path errors. These are recovered inside the interceptor and
	// never escape to the audited transaction.
	ErrMetadataUnresolved  ErrorCode = "AUDIT_METADATA_UNRESOLVED"
	ErrFlattenFailed       ErrorCode = "AUDIT_FLATTEN_FAILED"
	ErrPersistFailed       ErrorCode = "AUDIT_PERSIST_FAILED"
	ErrRegistryUnavailable ErrorCode = "AUDIT_REGISTRY_UNAVAILABLE"
)

// HTTPStatus returns the HTTP status code for this error code.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrBadRequest:
		return 400
	case ErrNotFound:
		return 404
	default:
		return 500
	}
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}
