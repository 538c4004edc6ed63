package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/infra"
)

const (
	DefaultImageModel = "dall-e-3"
	DefaultImageSize  = "1024x1024"
)

type GeneratorConfig struct {
	Model   string
	Size    string
	Timeout time.Duration
}

// Generator turns post text into an uploadable image via the images API.
type Generator struct {
	client openaigo.Client
	http   *http.Client
	cfg    GeneratorConfig
	logger *zap.Logger
}

func NewGenerator(client openaigo.Client, httpClient *http.Client, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultImageModel
	}
	if strings.TrimSpace(cfg.Size) == "" {
		cfg.Size = DefaultImageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = infra.ImageGenerationTimeout
	}
	return &Generator{client: client, http: httpClient, cfg: cfg, logger: logger.Named("media")}
}

// Prompt describes the picture to draw for a post.
func Prompt(postText, style string) string {
	postText = strings.TrimSpace(postText)
	style = strings.TrimSpace(style)
	if style == "" {
		return "An illustration for this social media post: " + postText
	}
	return fmt.Sprintf("An illustration for this social media post: %s\nStyle: %s", postText, style)
}

// Generate draws an image for prompt and returns it normalized for upload.
// The deadline is enforced here; callers do not retry.
func (g *Generator) Generate(ctx context.Context, prompt string) (Image, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.client.Images.Generate(ctx, openaigo.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openaigo.ImageModel(g.cfg.Model),
		N:              openaigo.Int(1),
		Size:           openaigo.ImageGenerateParamsSize(g.cfg.Size),
		ResponseFormat: openaigo.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return Image{}, fmt.Errorf("image generation failed: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return Image{}, fmt.Errorf("image generation returned no data")
	}

	first := resp.Data[0]
	var raw []byte
	switch {
	case strings.TrimSpace(first.URL) != "":
		raw, err = g.download(ctx, first.URL)
	case first.B64JSON != "":
		raw, err = base64.StdEncoding.DecodeString(first.B64JSON)
	default:
		err = fmt.Errorf("image generation returned neither url nor data")
	}
	if err != nil {
		return Image{}, err
	}

	img, err := Normalize(raw)
	if err != nil {
		return Image{}, err
	}
	g.logger.Info("generated image",
		zap.String("model", g.cfg.Model),
		zap.String("mime", img.MIME),
		zap.Int("bytes", len(img.Data)),
		zap.Duration("took", time.Since(started)),
	)
	return img, nil
}

func (g *Generator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download image: http status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body[:min(len(body), 256)])))
	}
	if len(body) > 4*MaxUploadBytes {
		return nil, fmt.Errorf("download image: body exceeds %d bytes", 4*MaxUploadBytes)
	}
	return body, nil
}
