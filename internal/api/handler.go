package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	app_errors "chat-stream/backend/internal/errors"
	"chat-stream/backend/internal/interfaces"
	"chat-stream/backend/internal/service"
)

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	service interfaces.ChatService
}

func NewChatHandler(svc interfaces.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// decodeJSON reads a request body into dst and validates it.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", app_errors.ErrValidation)
	}
	return validateRequest(dst)
}

// HandleStreamMessage godoc
// @Summary      Stream an assistant reply
// @Description  Saves the user message and streams the reply as Server-Sent Events. Each event is a data line holding one JSON object: a chunk per fragment, then a done event with the full response, or a single error event if generation fails.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      StreamMessageRequest  true  "Message and session"
// @Success      200      {string}  string                "Stream of events"
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/chat/stream [post]
func (h *ChatHandler) HandleStreamMessage(w http.ResponseWriter, r *http.Request) {
	var req StreamMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	sink := newSSEWriter(w)
	outcome, err := h.service.StreamMessage(r.Context(), service.StreamRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
	}, sink)
	if err != nil {
		if sink.started {
			slog.Error("Stream failed after output began", "session_id", req.SessionID, "error", err)
			return
		}
		respondWithError(w, err)
		return
	}

	slog.Info("Finished streaming response",
		"session_id", req.SessionID,
		"outcome", outcome.String(),
		"request_id", middleware.GetReqID(r.Context()),
	)
}

// HandleSendMessage godoc
// @Summary      Send a message
// @Description  Saves the user message, generates a complete reply and saves it.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      SendMessageRequest  true  "Message and session"
// @Success      200      {object}  SendMessageResponse
// @Failure      400      {object}  SendMessageResponse
// @Failure      500      {object}  SendMessageResponse
// @Failure      502      {object}  SendMessageResponse
// @Router       /api/v1/chat/send [post]
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	err := decodeJSON(r, &req)
	var result *service.SendResult
	if err == nil {
		result, err = h.service.SendMessage(r.Context(), service.SendRequest{
			Content:   req.Content,
			SessionID: req.SessionID,
		})
	}
	if err != nil {
		statusCode, message := mapError(err)
		slog.Warn("Send message failed", "status_code", statusCode, "session_id", req.SessionID, "internal_error", err)
		respondWithJSON(w, statusCode, SendMessageResponse{Success: false, Error: message})
		return
	}
	respondWithJSON(w, http.StatusOK, SendMessageResponse{Success: true, AIResponse: result.AIResponse})
}

// HandleGetMessages godoc
// @Summary      List session messages
// @Description  Returns every message of a session, oldest first.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      MessagesRequest  true  "Session"
// @Success      200      {array}   model.Message
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/v1/chat/messages [post]
func (h *ChatHandler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	var req MessagesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	h.listMessages(w, r, req.SessionID)
}

// HandleGetSessionMessages godoc
// @Summary      List session messages
// @Description  Returns every message of a session, oldest first.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {array}   model.Message
// @Failure      400        {object}  ErrorResponse
// @Failure      500        {object}  ErrorResponse
// @Router       /api/v1/sessions/{sessionID}/messages [get]
func (h *ChatHandler) HandleGetSessionMessages(w http.ResponseWriter, r *http.Request) {
	req := MessagesRequest{SessionID: chi.URLParam(r, "sessionID")}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}
	h.listMessages(w, r, req.SessionID)
}

func (h *ChatHandler) listMessages(w http.ResponseWriter, r *http.Request, sessionID string) {
	messages, err := h.service.ListMessages(r.Context(), sessionID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, messages)
}

// HandleNewSession godoc
// @Summary      Start a new session
// @Description  Issues a fresh session id. The server keeps no record of it until a message is sent.
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Router       /api/v1/chat/session [post]
func (h *ChatHandler) HandleNewSession(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, SessionResponse{SessionID: h.service.NewSession()})
}

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	store   interfaces.HealthChecker
	timeout time.Duration
}

func NewHealthHandler(store interfaces.HealthChecker) *HealthHandler {
	return &HealthHandler{store: store, timeout: 2 * time.Second}
}

// HandleHealth godoc
// @Summary      Health check
// @Description  Reports whether the conversation store is reachable.
// @Tags         System
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  StatusResponse
// @Router       /healthz [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("Health check failed", "error", err)
		respondWithJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
