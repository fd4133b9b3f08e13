package classifier

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompleter implements Completer against the OpenAI chat completions API
// or any compatible endpoint.
type OpenAICompleter struct {
	client     *openai.Client
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAICompleter.
type OpenAIOption func(*OpenAICompleter)

// WithBaseURL sets a custom API base URL, including the version prefix.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAICompleter) { c.baseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAICompleter) { c.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAICompleter) { c.httpClient = hc }
}

// NewOpenAICompleter creates a completer authenticated with a bearer key.
func NewOpenAICompleter(apiKey string, opts ...OpenAIOption) *OpenAICompleter {
	c := &OpenAICompleter{model: openai.GPT3Dot5Turbo}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	c.client = openai.NewClientWithConfig(cfg)
	return c
}

// Complete sends system and user messages and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
