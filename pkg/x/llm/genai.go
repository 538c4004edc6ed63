package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultGenAIModel          = "gemini-2.5-flash"
	DefaultGenAIEmbeddingModel = "gemini-embedding-001"
)

type GenAIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
}

type GenAIProvider struct {
	client *genai.Client
	cfg    GenAIConfig
}

func NewGenAIProvider(ctx context.Context, httpClient *http.Client, cfg GenAIConfig) (*GenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultGenAIModel
	}
	if strings.TrimSpace(cfg.EmbeddingModel) == "" {
		cfg.EmbeddingModel = DefaultGenAIEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIProvider{client: client, cfg: cfg}, nil
}

func (p *GenAIProvider) Complete(ctx context.Context, req GenerationRequest) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if s := req.System(); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if p.cfg.Temperature > 0 {
		temp := p.cfg.Temperature
		cfg.Temperature = &temp
	}

	res, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate content: %w", err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (p *GenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	res, err := p.client.Models.EmbedContent(ctx, p.cfg.EmbeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai embed: got %d vectors for %d inputs", len(res.Embeddings), len(texts))
	}
	out := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
