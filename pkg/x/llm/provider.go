package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
)

type ProviderConfig struct {
	Provider string
	OpenAI   OpenAIConfig
	GenAI    GenAIConfig
}

// NewProvider selects the backend named by cfg.Provider (default openai).
func NewProvider(ctx context.Context, httpClient *http.Client, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIProvider(httpClient, cfg.OpenAI)
	case ProviderGenAI, "gemini":
		return NewGenAIProvider(ctx, httpClient, cfg.GenAI)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
