package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindModelUnavailable
	KindInference
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInference    = errors.New("inference failed")
)

// RequestError is a failure that maps to a structured HTTP error response.
type RequestError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Is lets callers match a RequestError against the sentinel for its kind.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrInference:
		return e.Kind == KindInference
	case ErrModelUnavailable:
		return e.Kind == KindModelUnavailable
	}
	return false
}

func (e *RequestError) Status() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func invalidInput(format string, args ...any) *RequestError {
	return &RequestError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func asRequestError(err error) *RequestError {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}
	return &RequestError{Kind: KindInternal, Message: "Internal server error", Cause: err}
}

func sendErrorResponse(w http.ResponseWriter, err error) {
	reqErr := asRequestError(err)
	sendJSON(w, reqErr.Status(), ErrorResponse{Detail: reqErr.Error()})
}

// sendJSON encodes before writing the header so an encoding failure can
// still be reported as a 500.
func sendJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Detail: fmt.Sprintf("Internal server error: encode response: %v", err)})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
