package utils

import "fmt"

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"

	// Authentication/Authorization errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // User is authenticated but doesn't have permission
	ErrInvalidToken = "INVALID_TOKEN"

	// User-specific errors
	ErrUserNotFound       = "USER_NOT_FOUND"
	ErrUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrInvalidCredentials = "INVALID_CREDENTIALS"

	// Voting errors
	ErrAlreadyVoted = "ALREADY_VOTED"

	// Best-effort collaborators
	ErrExternalService = "EXTERNAL_SERVICE_FAILURE"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"

	ErrDatabase = "DATABASE_ERROR"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

// Specific error creators for common cases
func NewUserNotFoundError(userID string) *AppError {
	return &AppError{
		Code:    ErrUserNotFound,
		Message: "User not found: " + userID,
	}
}

func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

func NewAlreadyVotedError(postID string) *AppError {
	return &AppError{
		Code:    ErrAlreadyVoted,
		Message: "Already voted on post: " + postID,
	}
}

func NewActorTimeoutError(actorName string) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "Actor communication timeout: " + actorName,
	}
}

func NewValidationError(field string) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Message: fmt.Sprintf("Invalid or missing field: %s", field),
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// Helper method to check if an error is related to authentication
func IsAuthError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrUnauthorized ||
			appErr.Code == ErrForbidden ||
			appErr.Code == ErrInvalidToken
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrUserNotFound:
		return 404 // http.StatusNotFound
	case ErrInvalidInput, ErrInvalidCredentials:
		return 400 // http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return 401 // http.StatusUnauthorized
	case ErrForbidden:
		return 403 // http.StatusForbidden
	case ErrDuplicate, ErrUserAlreadyExists, ErrAlreadyVoted:
		return 409 // http.StatusConflict
	case ErrDatabase, ErrActorTimeout, ErrExternalService:
		return 500 // http.StatusInternalServerError
	default:
		return 500 // http.StatusInternalServerError for unknown errors
	}
}
