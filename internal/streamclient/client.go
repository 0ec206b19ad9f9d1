// Package streamclient consumes the chat API from a terminal or test: it
// posts messages, reads the event stream of a reply and keeps a transcript of
// the conversation.
package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chat-stream/backend/internal/model"
)

// ErrInterrupted marks a stream that ended without a terminal event.
var ErrInterrupted = errors.New("stream ended before the reply was complete")

// InterruptedMessage replaces the reply text when the connection drops mid-reply.
const InterruptedMessage = "The connection was lost before the reply finished."

// Client talks to one chat server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Stream sends message on sessionID and feeds the reply into t, calling
// onUpdate after every change of the reply entry. It returns the reply entry
// in its final state.
//
// Canceling ctx aborts the read: the entry ends Canceled with the text that
// had arrived, and ctx's error is returned. The server may still finish and
// store the reply.
func (c *Client) Stream(ctx context.Context, t *Transcript, sessionID, message string, onUpdate func(Entry)) (Entry, error) {
	if err := t.Begin(message); err != nil {
		return Entry{}, err
	}
	reply := len(t.entries) - 1
	update := func() {
		if onUpdate != nil {
			onUpdate(t.entries[reply])
		}
	}
	update()

	err := c.consume(ctx, t, sessionID, message, update)
	var apiErr *APIError
	switch {
	case err == nil:
		return t.entries[reply], nil
	case ctx.Err() != nil:
		err = ctx.Err()
		t.Cancel()
	case errors.Is(err, ErrInterrupted):
		t.Fail(InterruptedMessage)
	case errors.As(err, &apiErr):
		t.Fail(apiErr.Message)
	default:
		t.Fail(err.Error())
	}
	update()
	return t.entries[reply], err
}

// consume posts the message and applies events to t until a terminal event
// arrives. The reply is left open on any error.
func (c *Client) consume(ctx context.Context, t *Transcript, sessionID, message string, update func()) error {
	resp, err := c.post(ctx, "/api/chat/stream", map[string]string{"message": message, "sessionId": sessionID}, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	finished := false
	err = readEvents(resp.Body, func(ev model.StreamEvent) bool {
		if t.Apply(ev) {
			update()
		}
		finished = ev.Terminal()
		return !finished
	})
	if err != nil {
		return err
	}
	if !finished {
		return ErrInterrupted
	}
	return nil
}

// Send posts one turn to the non-streaming endpoint and returns the reply.
func (c *Client) Send(ctx context.Context, sessionID, content string) (string, error) {
	var out struct {
		Success    bool   `json:"success"`
		AIResponse string `json:"aiResponse"`
		Error      string `json:"error"`
	}
	if err := c.doJSON(ctx, "/api/v1/chat/send", map[string]string{"content": content, "session_id": sessionID}, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", &APIError{StatusCode: http.StatusOK, Message: out.Error}
	}
	return out.AIResponse, nil
}

// Messages returns the stored history of a session, oldest first.
func (c *Client) Messages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var out []model.Message
	if err := c.doJSON(ctx, "/api/v1/chat/messages", map[string]string{"session_id": sessionID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewSession asks the server for a fresh session id.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.doJSON(ctx, "/api/v1/chat/session", struct{}{}, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func (c *Client) post(ctx context.Context, path string, body any, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.post(ctx, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
