package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

type ollamaProvider struct {
	client *api.Client
}

// NewOllamaProvider creates a provider backed by a local or remote Ollama server.
func NewOllamaProvider(rawURL string) (Provider, error) {
	base, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ollama: parse url: %w", err)
	}
	return &ollamaProvider{client: api.NewClient(base, &http.Client{})}, nil
}

func (p *ollamaProvider) Name() string { return "ollama" }

func buildChatRequest(req *GenerateRequest, stream bool) *api.ChatRequest {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	options := map[string]any{"temperature": req.Options.Temperature}
	if req.Options.MaxOutputTokens > 0 {
		options["num_predict"] = req.Options.MaxOutputTokens
	}

	return &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}
}

func (p *ollamaProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var sb strings.Builder
	var modelName string
	err := p.client.Chat(ctx, buildChatRequest(req, false), func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		modelName = resp.Model
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: chat: %w", err)
	}
	return &GenerateResponse{Model: modelName, Response: sb.String()}, nil
}

func (p *ollamaProvider) GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error {
	defer close(ch)

	err := p.client.Chat(ctx, buildChatRequest(req, true), func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		select {
		case ch <- StreamResponse{Content: resp.Message.Content}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ollama: chat stream: %w", err)
	}
	return nil
}
