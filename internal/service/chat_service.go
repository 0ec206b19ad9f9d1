package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	app_errors "chat-stream/backend/internal/errors"
	"chat-stream/backend/internal/llm"
	"chat-stream/backend/internal/model"
	"chat-stream/backend/internal/repository"
)

const (
	DefaultStreamErrorMessage = "Sorry, I'm having trouble responding right now."
	DefaultFallbackReply      = "I'm sorry, I couldn't generate a reply."

	assistantWriteTimeout = 10 * time.Second
)

// EventSink receives the events of one streamed reply. A Send error means the
// client can no longer be reached.
type EventSink interface {
	Send(ev model.StreamEvent) error
}

// Settings are the generation parameters shared by every request.
type Settings struct {
	StreamModel        string
	ReplyModel         string
	SystemPrompt       string
	Options            llm.Options
	FallbackReply      string
	StreamErrorMessage string
}

// StreamRequest is one user turn relayed as a stream.
type StreamRequest struct {
	Message   string
	SessionID string
}

// SendRequest is one user turn answered with a single reply.
type SendRequest struct {
	Content   string
	SessionID string
}

// SendResult carries the assistant reply of a non-streaming turn.
type SendResult struct {
	AIResponse string
}

type ChatService struct {
	repo     repository.MessageRepository
	provider llm.Provider
	settings Settings
}

func NewChatService(repo repository.MessageRepository, provider llm.Provider, settings Settings) *ChatService {
	if settings.StreamErrorMessage == "" {
		settings.StreamErrorMessage = DefaultStreamErrorMessage
	}
	if settings.FallbackReply == "" {
		settings.FallbackReply = DefaultFallbackReply
	}
	return &ChatService{repo: repo, provider: provider, settings: settings}
}

// NewSession returns a fresh conversation id. Sessions are owned by clients;
// the service keeps no record of them.
func (s *ChatService) NewSession() string {
	return uuid.NewString()
}

// ListMessages returns the messages of a session in the order they were written.
func (s *ChatService) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", app_errors.ErrValidation)
	}
	messages, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %w", app_errors.ErrStore, err)
	}
	return messages, nil
}

// StreamMessage records the user message, relays the provider's reply to sink
// fragment by fragment and records the assistant message once the reply is
// complete.
//
// An error is returned only when nothing has been sent to sink yet: invalid
// input, or a failed user write. From the first event on, failures are
// reported through sink and reflected in the returned outcome.
func (s *ChatService) StreamMessage(ctx context.Context, req StreamRequest, sink EventSink) (model.StreamOutcome, error) {
	if err := validateTurn(req.Message, req.SessionID); err != nil {
		return model.OutcomeFailed, err
	}
	logger := slog.With("session_id", req.SessionID, "provider", s.provider.Name())

	userMsg := &model.Message{SessionID: req.SessionID, Role: model.RoleUser, Content: req.Message}
	if err := s.repo.AddMessage(ctx, userMsg); err != nil {
		return model.OutcomeFailed, fmt.Errorf("%w: save user message: %w", app_errors.ErrStore, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fragments := make(chan llm.StreamResponse)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.provider.GenerateStream(streamCtx, s.generateRequest(s.settings.StreamModel, req.Message), fragments)
	}()

	var full strings.Builder
	var sinkErr error
	for fragment := range fragments {
		if sinkErr != nil {
			// Drain until the provider notices the cancellation and closes the channel.
			continue
		}
		full.WriteString(fragment.Content)
		if err := sink.Send(model.ChunkEvent{Text: fragment.Content}); err != nil {
			sinkErr = err
			cancel()
		}
	}
	streamErr := <-errCh

	switch {
	case sinkErr != nil:
		logger.Info("Client stopped reading; upstream stream canceled", "error", sinkErr)
		return model.OutcomeCanceled, nil
	case ctx.Err() != nil:
		logger.Info("Request ended before the stream finished", "error", ctx.Err())
		return model.OutcomeCanceled, nil
	case streamErr != nil:
		logger.Error("Upstream stream failed", "error", streamErr, "partial_length", full.Len())
		if err := sink.Send(model.ErrorEvent{Message: s.settings.StreamErrorMessage}); err != nil {
			logger.Warn("Failed to deliver stream error event", "error", err)
		}
		return model.OutcomeFailed, nil
	}

	response := full.String()
	if err := sink.Send(model.DoneEvent{FullResponse: response}); err != nil {
		logger.Warn("Failed to deliver done event; saving the reply anyway", "error", err)
	}

	// The reply is complete; a client hanging up now must not lose it.
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), assistantWriteTimeout)
	defer cancelWrite()
	assistantMsg := &model.Message{SessionID: req.SessionID, Role: model.RoleAssistant, Content: response}
	if err := s.repo.AddMessage(writeCtx, assistantMsg); err != nil {
		logger.Error("CRITICAL: failed to save assistant message", "error", err, "response_length", len(response))
		return model.OutcomeComplete, nil
	}
	logger.Debug("Saved assistant message", "message_id", assistantMsg.ID)
	return model.OutcomeComplete, nil
}

// SendMessage is the non-streaming variant of StreamMessage. Every failure is
// returned to the caller, including a failed assistant write.
func (s *ChatService) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	if err := validateTurn(req.Content, req.SessionID); err != nil {
		return nil, err
	}

	userMsg := &model.Message{SessionID: req.SessionID, Role: model.RoleUser, Content: req.Content}
	if err := s.repo.AddMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("%w: save user message: %w", app_errors.ErrStore, err)
	}

	resp, err := s.provider.Generate(ctx, s.generateRequest(s.settings.ReplyModel, req.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", app_errors.ErrUpstream, s.provider.Name(), err)
	}
	reply := resp.Response
	if strings.TrimSpace(reply) == "" {
		slog.Warn("Provider returned an empty reply; using fallback", "session_id", req.SessionID)
		reply = s.settings.FallbackReply
	}

	assistantMsg := &model.Message{SessionID: req.SessionID, Role: model.RoleAssistant, Content: reply}
	if err := s.repo.AddMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("%w: save assistant message: %w", app_errors.ErrStore, err)
	}
	return &SendResult{AIResponse: reply}, nil
}

// generateRequest builds a single-turn request. Earlier messages of the
// session are not replayed to the provider.
func (s *ChatService) generateRequest(modelName, content string) *llm.GenerateRequest {
	return &llm.GenerateRequest{
		Model:        modelName,
		SystemPrompt: s.settings.SystemPrompt,
		Messages:     []llm.Message{{Role: string(model.RoleUser), Content: content}},
		Options:      s.settings.Options,
	}
}

func validateTurn(content, sessionID string) error {
	switch {
	case strings.TrimSpace(content) == "":
		return fmt.Errorf("%w: message is required", app_errors.ErrValidation)
	case strings.TrimSpace(sessionID) == "":
		return fmt.Errorf("%w: session id is required", app_errors.ErrValidation)
	}
	return nil
}
