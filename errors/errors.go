package errors

import (
	"fmt"
	"os"
)

// Standard error codes
const (
	ErrInvalidRequest      = 400
	ErrUnauthorized        = 401
	ErrForbidden           = 403
	ErrNotFound            = 404
	ErrConflict            = 409
	ErrTooManyRequests     = 429
	ErrInternalServerError = 500
	ErrServiceUnavailable  = 503

	// Wheel-specific error codes (1000+)
	ErrTenantNotFound       = 1001
	ErrNoPrizesAvailable    = 1002
	ErrDailyLimitReached    = 1003
	ErrCoolingDown          = 1004
	ErrSubscriptionRequired = 1005
	ErrUserStoreUnavailable = 1006
	ErrSpinNotFound         = 1007
	ErrRedisError           = 1008
	ErrKafkaError           = 1009
	ErrConfigError          = 1010
)

// AppError represents a custom application error
type AppError struct {
	Code         int                    `json:"code"`
	Message      string                 `json:"message"`
	DebugMessage string                 `json:"debug_message,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Err          error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.DebugMessage != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.DebugMessage)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s [%v]", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new AppError with machine-readable details
func NewWithDetails(code int, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// DailyLimitReached builds the eligibility error for an exhausted daily
// quota. The current count is carried in Details for client display.
func DailyLimitReached(spinsToday int) *AppError {
	return NewWithDetails(ErrDailyLimitReached, "daily spin limit reached", map[string]interface{}{
		"spins_today": spinsToday,
	})
}

// CoolingDown builds the eligibility error for an active cooldown. The
// remaining seconds are carried in Details for client display.
func CoolingDown(retryAfterSeconds int) *AppError {
	return NewWithDetails(ErrCoolingDown, "spin cooldown active", map[string]interface{}{
		"retry_after_seconds": retryAfterSeconds,
	})
}

// Response returns a map suitable for JSON response
func (e *AppError) Response() map[string]interface{} {
	response := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		response["details"] = e.Details
	}

	// Include debug message in development environment
	env := os.Getenv("APP_ENV")
	if (env == "dev" || env == "development") && e.DebugMessage != "" {
		response["debug_message"] = e.DebugMessage
	}

	return response
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode extracts error code from an error
func GetCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternalServerError
}

// IsCode reports whether err is an AppError with the given code
func IsCode(err error, code int) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// IsEligibilityError reports whether err is an expected, user-visible
// eligibility rejection rather than a config or transient failure.
func IsEligibilityError(err error) bool {
	code := GetCode(err)
	return code == ErrDailyLimitReached || code == ErrCoolingDown || code == ErrSubscriptionRequired
}

// HTTPStatusFromCode maps error codes to HTTP status codes
func HTTPStatusFromCode(code int) int {
	switch code {
	case ErrInvalidRequest:
		return 400
	case ErrUnauthorized:
		return 401
	case ErrForbidden:
		return 403
	case ErrNotFound:
		return 404
	case ErrConflict:
		return 409
	case ErrTooManyRequests:
		return 429
	case ErrInternalServerError:
		return 500
	case ErrServiceUnavailable:
		return 503
	case ErrTenantNotFound:
		return 404
	case ErrNoPrizesAvailable:
		return 409
	case ErrDailyLimitReached:
		return 429
	case ErrCoolingDown:
		return 429
	case ErrSubscriptionRequired:
		return 403
	case ErrUserStoreUnavailable:
		return 503
	case ErrSpinNotFound:
		return 404
	default:
		return 500
	}
}
