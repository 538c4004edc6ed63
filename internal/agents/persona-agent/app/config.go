package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/infra"
	"github.com/spyrux/persona-bot/pkg/runtime"
	"github.com/spyrux/persona-bot/pkg/x/httpx"
	"github.com/spyrux/persona-bot/pkg/x/llm"
)

const GaladrielBaseURL = "https://api.galadriel.com/v1"

// agentConfig loads --config and fills unset keys from the flags/env.
func (o *options) agentConfig() (infra.AgentConfig, error) {
	cfg, err := infra.LoadAgentConfig(o.configPath)
	if err != nil {
		return infra.AgentConfig{}, err
	}

	chat := &cfg.ChatModel
	if strings.TrimSpace(chat.APIKey) == "" {
		provider := strings.ToLower(strings.TrimSpace(chat.Provider))
		switch {
		case (provider == llm.ProviderGenAI || provider == "gemini") && o.geminiKey != "":
			chat.APIKey = o.geminiKey
		case provider == "" && o.openAIKey == "" && o.geminiKey != "":
			chat.Provider = llm.ProviderGenAI
			chat.APIKey = o.geminiKey
		default:
			chat.APIKey = o.openAIKey
		}
	}

	img := &cfg.ImageModel
	if strings.TrimSpace(img.APIKey) == "" {
		switch {
		case o.galadrielKey != "":
			img.APIKey = o.galadrielKey
			if strings.TrimSpace(img.BaseURL) == "" {
				img.BaseURL = GaladrielBaseURL
			}
		case o.openAIKey != "":
			img.APIKey = o.openAIKey
		}
	}

	for _, raw := range []string{chat.BaseURL, img.BaseURL} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if err := runtime.ValidateHTTPURL(raw); err != nil {
			return infra.AgentConfig{}, fmt.Errorf("base_url: %w", err)
		}
	}

	if o.replyToMentions {
		cfg.Schedule.ReplyToMentions = true
	}
	return cfg, nil
}

// newHTTPClient is shared by the model providers, the feed loader and image
// downloads. PERSONA_HTTP_TIMEOUT overrides the timeout in seconds.
func newHTTPClient() (*http.Client, error) {
	timeout, err := runtime.EnvSeconds("PERSONA_HTTP_TIMEOUT", llm.DefaultOpenAIHTTPClientTimeout)
	if err != nil {
		return nil, err
	}
	return httpx.NewClient(httpx.ClientOptions{Timeout: timeout, UseEnvProxy: true})
}
