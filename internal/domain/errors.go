package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

// ErrUnauthorized covers bad credentials and any email other than the single
// authorized admin address. Terminal and user-visible.
func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

// ErrAccessDenied is the terminal state for a navigation path whose routing slug
// has no binding at all. A mere mismatch auto-corrects instead.
func ErrAccessDenied(msg string) *AppError {
	return &AppError{Code: "ACCESS_DENIED", Message: msg, Status: 403}
}

// ErrSessionTakeover marks a session invalidated by a newer login elsewhere.
// Not rendered as an error dialog; callers clear local state and redirect.
func ErrSessionTakeover() *AppError {
	return &AppError{Code: "SESSION_TAKEOVER", Message: "session invalidated by a newer login", Status: 401}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

// ErrDecrypt marks a per-message decryption failure (wrong key, corrupted or
// truncated blob). Rendered as a placeholder, never fatal to the surrounding view.
func ErrDecrypt(cause error) *AppError {
	return &AppError{Code: "DECRYPT_FAILED", Message: "message could not be decrypted", Status: 422, Cause: cause}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
