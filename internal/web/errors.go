package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/TripLoader/internal/core"
	"github.com/JonMunkholm/TripLoader/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
// Code is machine readable; Message and Action are meant for people.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError logs the technical error with the request ID and writes the
// mapped user message. Pass status 0 to derive it from the error class.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if errors.Is(err, core.ErrImportBusy) {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, status, ErrorResponse{
		Error:     msg.Message,
		Message:   msg.Message,
		Action:    msg.Action,
		Code:      msg.Code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// respondBadRequest reports a problem with the request itself.
func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	logging.FromContext(r.Context()).Warn("bad request", "path", r.URL.Path, "reason", message)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:     message,
		Message:   message,
		Code:      "HTTP400",
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// respondForbidden reports a request the server's configuration does not allow.
func respondForbidden(w http.ResponseWriter, r *http.Request, message string) {
	logging.FromContext(r.Context()).Warn("forbidden", "path", r.URL.Path, "reason", message)
	writeJSON(w, http.StatusForbidden, ErrorResponse{
		Error:     message,
		Message:   message,
		Code:      "HTTP403",
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// statusFor maps pipeline error classes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrImportBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrNoTrips):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrPersist):
		if core.MapError(err).Code == "DB001" {
			return http.StatusConflict
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
