package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultOpenAIBaseURL           = "https://api.openai.com/v1"
	DefaultOpenAIModel             = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel    = "text-embedding-3-small"
	DefaultOpenAIMaxRetries        = 5
	DefaultOpenAIRequestTimeout    = 75 * time.Second
	DefaultOpenAIHTTPClientTimeout = 75 * time.Second
)

type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float64

	// SDK client options. Zero MaxRetries means the default; negative disables retries.
	MaxRetries     int
	RequestTimeout time.Duration
}

func (c OpenAIConfig) withDefaults() OpenAIConfig {
	out := c
	if strings.TrimSpace(out.BaseURL) == "" {
		out.BaseURL = DefaultOpenAIBaseURL
	}
	if strings.TrimSpace(out.Model) == "" {
		out.Model = DefaultOpenAIModel
	}
	if strings.TrimSpace(out.EmbeddingModel) == "" {
		out.EmbeddingModel = DefaultOpenAIEmbeddingModel
	}
	switch {
	case out.MaxRetries == 0:
		out.MaxRetries = DefaultOpenAIMaxRetries
	case out.MaxRetries < 0:
		out.MaxRetries = 0
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultOpenAIRequestTimeout
	}
	return out
}

func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultOpenAIHTTPClientTimeout}
}

// NewOpenAIClient builds an SDK client from cfg. Also used for the images API.
func NewOpenAIClient(httpClient *http.Client, cfg OpenAIConfig) (openaigo.Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return openaigo.Client{}, fmt.Errorf("api key is required")
	}
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return openaigo.NewClient(
		option.WithBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")),
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.RequestTimeout),
	), nil
}

type OpenAIProvider struct {
	client openaigo.Client
	cfg    OpenAIConfig
}

func NewOpenAIProvider(httpClient *http.Client, cfg OpenAIConfig) (*OpenAIProvider, error) {
	client, err := NewOpenAIClient(httpClient, cfg)
	if err != nil {
		return nil, err
	}
	return &OpenAIProvider{client: client, cfg: cfg.withDefaults()}, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, req GenerationRequest) (string, error) {
	var messages []openaigo.ChatCompletionMessageParamUnion
	for _, m := range req.Messages() {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openaigo.SystemMessage(m.Content))
		default:
			messages = append(messages, openaigo.UserMessage(m.Content))
		}
	}

	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(strings.TrimSpace(p.cfg.Model)),
		Messages: messages,
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = openaigo.Float(p.cfg.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.Embeddings.New(ctx, openaigo.EmbeddingNewParams{
		Model: openaigo.EmbeddingModel(p.cfg.EmbeddingModel),
		Input: openaigo.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", idx)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}
