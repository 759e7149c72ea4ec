package serverutils

import "github.com/gofiber/fiber/v2"

// AppError is the service-level error taxonomy. Services return these and the
// error-handler middleware maps them onto HTTP statuses.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeInternal        = "INTERNAL"
)

func NewUnauthorized(message string) *AppError {
	return &AppError{Status: fiber.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

func NewInvalidArgument(message string) *AppError {
	return &AppError{Status: fiber.StatusBadRequest, Code: CodeInvalidArgument, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Status: fiber.StatusNotFound, Code: CodeNotFound, Message: message}
}

func NewQuotaExceeded(message string) *AppError {
	return &AppError{Status: fiber.StatusTooManyRequests, Code: CodeQuotaExceeded, Message: message}
}

func NewInternal(message string) *AppError {
	return &AppError{Status: fiber.StatusInternalServerError, Code: CodeInternal, Message: message}
}
