package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("resource already exists")

	ErrTokenNotFound     = errors.New("token not found")
	ErrTokenNotProcessed = errors.New("token metadata not processed yet")
	ErrLocaleNotFound    = errors.New("locale not found")

	ErrHostRateLimited   = errors.New("host rate limited")
	ErrFetchTimeout      = errors.New("metadata fetch timed out")
	ErrFetchTransport    = errors.New("metadata fetch transport error")
	ErrMalformedMetadata = errors.New("malformed metadata")
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")
	ErrOversizedBody     = errors.New("metadata body exceeds size limit")

	ErrInvalidJobTarget   = errors.New("job target must reference exactly one of token or contract")
	ErrInvariantViolation = errors.New("persisted state violates invariant")
	ErrJobNotQueued       = errors.New("job is not queued")
)

// Error codes returned to API clients
const (
	CodeNotFound          = "NOT_FOUND"
	CodeBadRequest        = "BAD_REQUEST"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeTokenNotFound     = "TOKEN_NOT_FOUND"
	CodeTokenNotProcessed = "TOKEN_NOT_PROCESSED"
	CodeLocaleNotFound    = "LOCALE_NOT_FOUND"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// TokenNotFound is returned when the contract or token is not indexed.
func TokenNotFound() *AppError {
	return NewAppError(http.StatusNotFound, CodeTokenNotFound, "Token not found", ErrTokenNotFound)
}

// TokenNotProcessed is returned when the token exists but has no default metadata yet.
func TokenNotProcessed() *AppError {
	return NewAppError(http.StatusUnprocessableEntity, CodeTokenNotProcessed, "Token metadata fetch in progress", ErrTokenNotProcessed)
}

func LocaleNotFound() *AppError {
	return NewAppError(http.StatusUnprocessableEntity, CodeLocaleNotFound, "Locale not found", ErrLocaleNotFound)
}

// FromError maps domain sentinels to their API representation.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return TokenNotFound()
	case errors.Is(err, ErrTokenNotProcessed):
		return TokenNotProcessed()
	case errors.Is(err, ErrLocaleNotFound):
		return LocaleNotFound()
	case errors.Is(err, ErrNotFound):
		return NotFound(err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidJobTarget):
		return BadRequest(err.Error())
	default:
		return InternalError(err)
	}
}
