package errors

import "fmt"

type ErrorCode string

const (
	// Generic codes
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"

	// Token codes
	ErrTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	ErrInvalidTokenFormat         ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrMissingAuthorizationHeader ErrorCode = "MISSING_AUTHORIZATION_HEADER"

	// Proposal engine codes
	ErrNoParticipants    ErrorCode = "NO_PARTICIPANTS"
	ErrNoAvailability    ErrorCode = "NO_AVAILABILITY"
	ErrAIRateLimited     ErrorCode = "AI_RATE_LIMITED"
	ErrAIProvider        ErrorCode = "AI_PROVIDER_ERROR"
	ErrAIInvalidResponse ErrorCode = "AI_INVALID_RESPONSE"
)

// AppError is the error type services return to controllers.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the error carries the given code.
func Is(err error, code ErrorCode) bool {
	if ae, ok := err.(*AppError); ok && ae != nil {
		return ae.Code == code
	}
	return false
}
