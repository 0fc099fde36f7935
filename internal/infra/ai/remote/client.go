package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bryanwahyu/aishield/internal/domain/analysis"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 1 << 20
)

// Config for the remote analysis endpoint. APIKey is optional; when set it is
// sent as a bearer token.
type Config struct {
	Endpoint         string
	APIKey           string
	Timeout          time.Duration
	MaxResponseBytes int64
	HTTPClient       *http.Client
}

// Client implements analysis.Analyzer over HTTP.
type Client struct {
	endpoint         string
	apiKey           string
	http             *http.Client
	maxResponseBytes int64
}

func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid analyzer endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid analyzer endpoint scheme: %q", u.Scheme)
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:         cfg.Endpoint,
		apiKey:           cfg.APIKey,
		http:             hc,
		maxResponseBytes: cfg.MaxResponseBytes,
	}, nil
}

type analyzeRequest struct {
	Message string `json:"message"`
}

// errorEnvelope picks the "error" field out of any response body.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

// Analyze posts message and maps the outcome into a Result or an *analysis.Error.
func (c *Client) Analyze(ctx context.Context, message string) (*analysis.Result, error) {
	body, err := json.Marshal(analyzeRequest{Message: message})
	if err != nil {
		return nil, analysis.TransportFailure(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, analysis.TransportFailure(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, analysis.TransportFailure(fmt.Errorf("call analyzer: %w", err))
	}
	defer resp.Body.Close()

	// 429 dan 402 ditentukan status saja, body tidak dibaca
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, analysis.RateLimited()
	case http.StatusPaymentRequired:
		return nil, analysis.ServiceUnavailable()
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, analysis.TransportFailure(fmt.Errorf("read response: %w", err))
	}
	if int64(len(raw)) > c.maxResponseBytes {
		return nil, analysis.TransportFailure(fmt.Errorf("response exceeded limit (%d bytes)", c.maxResponseBytes))
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if !ok {
			return nil, analysis.RequestFailed(resp.StatusCode)
		}
		return nil, analysis.TransportFailure(fmt.Errorf("decode response: %w", err))
	}

	if text, found := errorText(envelope.Error); found {
		return nil, analysis.ServiceError(resp.StatusCode, text)
	}
	if !ok {
		return nil, analysis.RequestFailed(resp.StatusCode)
	}

	var result analysis.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, analysis.TransportFailure(fmt.Errorf("decode result: %w", err))
	}
	if err := result.Validate(); err != nil {
		return nil, analysis.TransportFailure(err)
	}
	return &result, nil
}

// errorText extracts the server message from an "error" field. Absent, null,
// false, 0 and "" mean no error. A string is returned as sent, an object with a
// "message" member yields that member, anything else its raw JSON text.
func errorText(raw json.RawMessage) (string, bool) {
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message, true
	}
	return string(raw), true
}
