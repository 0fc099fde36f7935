// Package ai selects the analysis backend.
package ai

import (
	"fmt"
	"time"

	"github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/infra/ai/openai"
	"github.com/bryanwahyu/aishield/internal/infra/ai/remote"
)

// Providers.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// Options mirrors the analyzer section of the config.
type Options struct {
	Provider         string
	Endpoint         string
	APIKey           string
	Model            string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// New builds the Analyzer for opts.Provider. An empty provider means http.
func New(opts Options) (analysis.Analyzer, error) {
	switch opts.Provider {
	case "", ProviderHTTP:
		c, err := remote.NewClient(remote.Config{
			Endpoint:         opts.Endpoint,
			APIKey:           opts.APIKey,
			Timeout:          opts.Timeout,
			MaxResponseBytes: opts.MaxResponseBytes,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := openai.NewClient(openai.Config{
			APIKey:  opts.APIKey,
			Model:   opts.Model,
			BaseURL: opts.Endpoint,
			Timeout: opts.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", opts.Provider)
	}
}
