// Package openai provides an OpenAI-compatible llm.Provider. A custom
// base URL makes it work against any compatible endpoint (DeepSeek,
// Azure, local servers).
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultModel     = "deepseek-chat"
	defaultMaxTokens = 1024
)

// Provider implements llm.Provider over the OpenAI chat completions API.
type Provider struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// Option configures a Provider.
type Option func(*Provider) error

// WithModel sets the model used for completions.
func WithModel(model string) Option {
	return func(p *Provider) error {
		p.model = model
		return nil
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int64) Option {
	return func(p *Provider) error {
		if n <= 0 {
			return fmt.Errorf("openai: max tokens must be positive, got %d", n)
		}
		p.maxTokens = n
		return nil
	}
}

// NewProvider creates a provider. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; an empty baseURL uses the
// standard OpenAI endpoint.
func NewProvider(apiKey, baseURL string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required (parameter or OPENAI_API_KEY)")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	p := &Provider{
		client:    openai.NewClient(clientOpts...),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Complete sends the prompts and returns the full response text.
func (p *Provider) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(p.model),
		Messages:  messages,
		MaxTokens: openai.Int(p.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the model name in use.
func (p *Provider) Model() string {
	return p.model
}
