package infra

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spyrux/persona-bot/pkg/x/llm"
)

type ChatModelConfig struct {
	// Provider is "openai" (default) or "genai".
	Provider       string  `json:"provider"`
	BaseURL        string  `json:"base_url"`
	APIKey         string  `json:"api_key"`
	Model          string  `json:"model"`
	EmbeddingModel string  `json:"embedding_model"`
	Temperature    float64 `json:"temperature"`
}

type ImageModelConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	// Percent of new posts that carry a generated image (0-100).
	Percent int `json:"percent"`
}

type ScheduleConfig struct {
	PostWeight          int  `json:"post_weight"`
	TimelineWeight      int  `json:"timeline_weight"`
	TimelineLimit       int  `json:"timeline_limit"`
	ItemDelayMinSeconds int  `json:"item_delay_min_seconds"`
	ItemDelayMaxSeconds int  `json:"item_delay_max_seconds"`
	LoopDelayMinSeconds int  `json:"loop_delay_min_seconds"`
	LoopDelayMaxSeconds int  `json:"loop_delay_max_seconds"`
	ReplyToMentions     bool `json:"reply_to_mentions"`
	MentionsLimit       int  `json:"mentions_limit"`
	ThreadDepth         int  `json:"thread_depth"`
}

type AgentConfig struct {
	ChatModel ChatModelConfig `json:"chat_model"`
	// GateModel drives the attention decisions; empty fields fall back to ChatModel.
	GateModel  ChatModelConfig  `json:"gate_model"`
	ImageModel ImageModelConfig `json:"image_model"`
	Schedule   ScheduleConfig   `json:"schedule"`
	// Timezone controls the "Current time" context line.
	// Supported values:
	// - IANA TZ name, e.g. "Asia/Seoul"
	// - Fixed offsets, e.g. "+09:00", "-07:00", "+0900", "UTC+9", "GMT+09:00"
	// Empty means the host's local zone.
	Timezone string `json:"timezone"`
}

func ParseAgentConfig(raw string) (AgentConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "{}" {
		return AgentConfig{}, nil
	}

	var cfg AgentConfig
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("invalid config JSON: %w", err)
	}
	if dec.More() {
		return AgentConfig{}, fmt.Errorf("invalid config JSON: trailing data")
	}
	return cfg, nil
}

func LoadAgentConfig(path string) (AgentConfig, error) {
	if strings.TrimSpace(path) == "" {
		return AgentConfig{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return AgentConfig{}, fmt.Errorf("read config: %w", err)
	}
	return ParseAgentConfig(string(b))
}

func (c ChatModelConfig) merged(fallback ChatModelConfig) ChatModelConfig {
	out := c
	if strings.TrimSpace(out.Provider) == "" {
		out.Provider = fallback.Provider
	}
	if strings.TrimSpace(out.BaseURL) == "" {
		out.BaseURL = fallback.BaseURL
	}
	if strings.TrimSpace(out.APIKey) == "" {
		out.APIKey = fallback.APIKey
	}
	if strings.TrimSpace(out.Model) == "" {
		out.Model = fallback.Model
	}
	if strings.TrimSpace(out.EmbeddingModel) == "" {
		out.EmbeddingModel = fallback.EmbeddingModel
	}
	if out.Temperature == 0 {
		out.Temperature = fallback.Temperature
	}
	return out
}

// ProviderConfig maps a model section onto llm.ProviderConfig.
func (c ChatModelConfig) ProviderConfig() (llm.ProviderConfig, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return llm.ProviderConfig{}, fmt.Errorf("persona-agent config incomplete: chat_model.api_key is required")
	}
	return llm.ProviderConfig{
		Provider: c.Provider,
		OpenAI: llm.OpenAIConfig{
			BaseURL:        strings.TrimSpace(c.BaseURL),
			APIKey:         strings.TrimSpace(c.APIKey),
			Model:          strings.TrimSpace(c.Model),
			EmbeddingModel: strings.TrimSpace(c.EmbeddingModel),
			Temperature:    c.Temperature,
		},
		GenAI: llm.GenAIConfig{
			APIKey:         strings.TrimSpace(c.APIKey),
			Model:          strings.TrimSpace(c.Model),
			EmbeddingModel: strings.TrimSpace(c.EmbeddingModel),
			Temperature:    float32(c.Temperature),
		},
	}, nil
}

func (c AgentConfig) ChatProviderConfig() (llm.ProviderConfig, error) {
	return c.ChatModel.ProviderConfig()
}

func (c AgentConfig) GateProviderConfig() (llm.ProviderConfig, error) {
	return c.GateModel.merged(c.ChatModel).ProviderConfig()
}

// Timing is the resolved schedule with defaults applied.
type Timing struct {
	PostWeight      int
	TimelineWeight  int
	TimelineLimit   int
	ItemDelayMin    time.Duration
	ItemDelayMax    time.Duration
	LoopDelayMin    time.Duration
	LoopDelayMax    time.Duration
	ReplyToMentions bool
	MentionsLimit   int
	ImagePercent    int
	// ThreadDepth caps the items gathered for a reply, leaf included.
	ThreadDepth int
}

func (c AgentConfig) Timing() Timing {
	s := c.Schedule
	secs := func(v int, def time.Duration) time.Duration {
		if v <= 0 {
			return def
		}
		return time.Duration(v) * time.Second
	}
	pos := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}

	t := Timing{
		PostWeight:      pos(s.PostWeight, DefaultPostWeight),
		TimelineWeight:  pos(s.TimelineWeight, DefaultTimelineWeight),
		TimelineLimit:   pos(s.TimelineLimit, DefaultTimelineLimit),
		ItemDelayMin:    secs(s.ItemDelayMinSeconds, DefaultItemDelayMin),
		ItemDelayMax:    secs(s.ItemDelayMaxSeconds, DefaultItemDelayMax),
		LoopDelayMin:    secs(s.LoopDelayMinSeconds, DefaultLoopDelayMin),
		LoopDelayMax:    secs(s.LoopDelayMaxSeconds, DefaultLoopDelayMax),
		ReplyToMentions: s.ReplyToMentions,
		MentionsLimit:   pos(s.MentionsLimit, DefaultMentionsLimit),
		ImagePercent:    min(max(c.ImageModel.Percent, 0), 100),
		ThreadDepth:     pos(s.ThreadDepth, DefaultThreadDepth),
	}
	if t.ItemDelayMax < t.ItemDelayMin {
		t.ItemDelayMax = t.ItemDelayMin
	}
	if t.LoopDelayMax < t.LoopDelayMin {
		t.LoopDelayMax = t.LoopDelayMin
	}
	return t
}

func (c AgentConfig) TimeLocation() (*time.Location, error) {
	return ResolveTimezoneLocation(c.Timezone)
}
