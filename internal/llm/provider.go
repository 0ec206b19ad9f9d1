package llm

import (
	"context"
)

// StreamResponse is one fragment of generated text.
type StreamResponse struct {
	Content string
}

// Provider defines the interface for interacting with a language model.
type Provider interface {
	// Generate returns the whole completion in one response.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// GenerateStream sends fragments to ch in arrival order and closes ch
	// before returning. A non-nil error means the stream ended abnormally;
	// fragments already sent remain valid.
	GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error

	// Name identifies the provider in logs.
	Name() string
}

// Options bounds one generation call.
type Options struct {
	MaxOutputTokens int
	Temperature     float64
}

type GenerateRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Options      Options
}

type Message struct {
	Role    string
	Content string
}

type GenerateResponse struct {
	Model    string
	Response string
}
