package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/KaramelBytes/vizloom-cli/internal/table"
)

// Error codes written in the "error" field.
const (
	CodeEmptyTable        = "empty_table"
	CodeUnsupportedFormat = "unsupported_format"
	CodeInvalidRequest    = "invalid_request"
	CodePayloadTooLarge   = "payload_too_large"
	CodeCancelled         = "request_cancelled"
	CodeInternal          = "internal_error"
)

// statusClientClosedRequest is the de facto status for requests the client
// abandoned.
const statusClientClosedRequest = 499

type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error { return &requestError{msg: msg, err: err} }

// ErrorResponse writes a JSON error body.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// classify maps an error onto a status and error code.
func classify(err error) (int, string) {
	var (
		empty       *table.EmptyTableError
		unsupported *table.UnsupportedFormatError
		tooLarge    *http.MaxBytesError
		invalid     *requestError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, CodePayloadTooLarge
	case errors.As(err, &empty):
		return http.StatusBadRequest, CodeEmptyTable
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType, CodeUnsupportedFormat
	case errors.As(err, &invalid):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, CodeCancelled
	}
	return http.StatusInternalServerError, CodeInternal
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("code", code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}
	if werr := ErrorResponse(w, status, code, err.Error()); werr != nil {
		s.logger.Error("failed to encode error response", zap.Error(werr))
	}
}

func (s *Server) respond(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}
