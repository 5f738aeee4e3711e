package utils

import "net/http"

// APIError is an error that knows the HTTP status it should be rendered
// with. Handlers return these; the router's wrapper translates them into
// the failure envelope. Anything else becomes a 500.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message)
}

func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, message)
}

func NotFound(message string) *APIError {
	return NewAPIError(http.StatusNotFound, message)
}

func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, message)
}

func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, message)
}
