package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	app_errors "chat-stream/backend/internal/errors"
	"chat-stream/backend/internal/model"
)

// This file contains shared DTOs (Data Transfer Objects) for API requests and
// responses and helper functions for sending consistent HTTP responses.

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse defines a generic status payload, used by the health check.
type StatusResponse struct {
	Status string `json:"status"`
}

// StreamMessageRequest is the body of the streaming chat endpoint.
type StreamMessageRequest struct {
	Message   string `json:"message" validate:"required,max=32000" example:"Hello!"`
	SessionID string `json:"sessionId" validate:"required,max=128" example:"6f1c2d9e-7a4b-4c1e-9a43-2f0d8b7e5c11"`
}

// SendMessageRequest is the body of the non-streaming chat endpoint.
type SendMessageRequest struct {
	Content   string `json:"content" validate:"required,max=32000" example:"Hello!"`
	SessionID string `json:"session_id" validate:"required,max=128" example:"6f1c2d9e-7a4b-4c1e-9a43-2f0d8b7e5c11"`
}

// SendMessageResponse reports the outcome of a non-streaming turn.
type SendMessageResponse struct {
	Success    bool   `json:"success"`
	AIResponse string `json:"aiResponse,omitempty"`
	Error      string `json:"error,omitempty"`
}

// MessagesRequest selects the session whose history is returned.
type MessagesRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128" example:"6f1c2d9e-7a4b-4c1e-9a43-2f0d8b7e5c11"`
}

// SessionResponse carries a freshly issued session id.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

// mapError translates business-layer errors into an HTTP status code and a
// message that is safe to show to a client.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		return http.StatusNotFound, "The requested resource was not found."
	case errors.Is(err, app_errors.ErrValidation):
		// Validation messages are written for the client by the service layer.
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app_errors.ErrConflict):
		return http.StatusConflict, "A conflict occurred with the current state of the resource."
	case errors.Is(err, app_errors.ErrPermission):
		return http.StatusForbidden, "You do not have permission to perform this action."
	case errors.Is(err, app_errors.ErrUpstream):
		return http.StatusBadGateway, "The assistant is unavailable right now. Please try again."
	case errors.Is(err, app_errors.ErrStore):
		return http.StatusInternalServerError, "Your message could not be saved. Please try again."
	default:
		return http.StatusInternalServerError, "An unexpected internal server error occurred."
	}
}

// respondWithError is the centralized error handling function for the API layer.
// The original error is logged; the client only sees the mapped message.
func respondWithError(w http.ResponseWriter, err error) {
	statusCode, message := mapError(err)
	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)
	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON is a low-level helper for marshaling a payload to JSON
// and writing it to the http.ResponseWriter with a given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// writeStreamEvent writes one `data:` frame to an SSE stream and flushes it.
// It returns an error on write failure, which is a signal that the client has disconnected.
func writeStreamEvent(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write data to stream: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// sseWriter delivers stream events to an HTTP client. Headers are written
// with the first event, so a request that fails before streaming can still
// be answered with an ordinary JSON error.
type sseWriter struct {
	w       http.ResponseWriter
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w}
}

func (s *sseWriter) Send(ev model.StreamEvent) error {
	data, err := model.EncodeStreamEvent(ev)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		// Stops nginx and similar proxies from buffering the stream.
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	return writeStreamEvent(s.w, data)
}
