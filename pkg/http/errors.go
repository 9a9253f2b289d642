package http

import (
	"fmt"
	"net/http"
)

// AppError is an error that carries the HTTP status it should be served with.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

var statusCodes = map[int]string{
	http.StatusBadRequest:          "ERR_BAD_REQUEST",
	http.StatusNotFound:            "ERR_NOT_FOUND",
	http.StatusConflict:            "ERR_CONFLICT",
	http.StatusUnprocessableEntity: "ERR_UNPROCESSABLE",
	http.StatusTooManyRequests:     "ERR_RATE_LIMITED",
}

func statusError(status int, message string) *AppError {
	code, ok := statusCodes[status]
	if !ok {
		code = "ERR_INTERNAL"
	}
	return &AppError{Code: code, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField names the request field the error is about.
func (e *AppError) WithField(field string) *AppError {
	e.Field = field
	return e
}

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError keeps the cause for logging; it is never serialised.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return statusError(http.StatusBadRequest, message)
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return statusError(http.StatusNotFound, fmt.Sprintf(format, a...))
}

// ConflictErrorf reports a resource that exists but is not in the required state.
func ConflictErrorf(format string, a ...interface{}) *AppError {
	return statusError(http.StatusConflict, fmt.Sprintf(format, a...))
}

// UnprocessableError reports a well-formed request the domain rejects.
func UnprocessableError(message string) *AppError {
	return statusError(http.StatusUnprocessableEntity, message)
}

func TooManyRequestsError(message string) *AppError {
	return statusError(http.StatusTooManyRequests, message)
}

func InternalError(message string) *AppError {
	return statusError(http.StatusInternalServerError, message)
}
