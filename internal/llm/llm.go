package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message is one chat turn. Role is one of system, user, assistant.
type Message struct {
	Role    string
	Content string
}

// Request carries the messages plus sampling knobs for one completion.
// Zero Temperature and MaxTokens leave the provider defaults in place.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Client is a provider-neutral chat completion client.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
}

// WithBaseURL overrides the provider endpoint (used by tests and proxies).
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// ParseModel splits a "provider/model_name" spec.
func ParseModel(model string) (provider, modelName string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model format %q: expected provider/model_name", model)
	}
	return parts[0], parts[1], nil
}

// NewClient builds a Client for the given provider.
func NewClient(provider, apiKey, model string, opts ...Option) (Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch provider {
	case "openai":
		return newOpenAIClient(apiKey, model, o)
	case "anthropic":
		return newAnthropicClient(apiKey, model, o)
	case "gemini":
		return newGeminiClient(apiKey, model, o)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: supported providers are openai, anthropic, gemini", provider)
	}
}
