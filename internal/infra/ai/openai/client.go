package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/infra/ai/prompt"
)

const (
	maxTokens    = 1024
	defaultModel = "gpt-4o-mini"
)

// Config for the chat-completions backend. BaseURL is optional and points the
// client at any OpenAI-compatible server.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements analysis.Analyzer with a chat model doing the classification.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(oc), Model: model}, nil
}

func (c *Client) Analyze(ctx context.Context, message string) (*analysis.Result, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(message)},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(c.Model, "o1") || strings.HasPrefix(c.Model, "o3") || strings.HasPrefix(c.Model, "o4") || strings.HasPrefix(c.Model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, analysis.TransportFailure(errors.New("chat completion returned no choices"))
	}

	var result analysis.Result
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, analysis.TransportFailure(fmt.Errorf("decode model output: %w", err))
	}
	if err := result.Validate(); err != nil {
		return nil, analysis.TransportFailure(err)
	}
	return &result, nil
}

// mapError sorts provider failures into the analysis error taxonomy. An
// exhausted quota counts as the service being unavailable, not as a rate limit.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, _ := apiErr.Code.(string); code == "insufficient_quota" {
			return analysis.ServiceUnavailable()
		}
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return analysis.RateLimited()
		case http.StatusPaymentRequired:
			return analysis.ServiceUnavailable()
		}
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return analysis.ServiceError(apiErr.HTTPStatusCode, msg)
		}
		return analysis.RequestFailed(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return analysis.RateLimited()
		case http.StatusPaymentRequired:
			return analysis.ServiceUnavailable()
		}
		if reqErr.HTTPStatusCode >= 400 {
			return analysis.RequestFailed(reqErr.HTTPStatusCode)
		}
	}
	return analysis.TransportFailure(fmt.Errorf("chat completion: %w", err))
}
