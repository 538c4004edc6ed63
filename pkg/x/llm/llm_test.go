package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRequest_Messages(t *testing.T) {
	t.Parallel()

	req := GenerationRequest{
		Preamble:  "You are Gi-hun.",
		Contexts:  []string{"Current time: 01:02:03 PM, 2024-01-02", "  "},
		Documents: []Document{{ID: "d1", Text: "I played the games."}},
		Prompt:    "Share brief thoughts.",
	}
	msgs := req.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "You are Gi-hun.\n\nCurrent time:"))
	assert.Contains(t, msgs[0].Content, `<document id="d1">`)
	assert.Equal(t, Message{Role: RoleUser, Content: "Share brief thoughts."}, msgs[1])

	bare := GenerationRequest{Prompt: "hi"}.Messages()
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}}, bare)
}

func TestOpenAIProvider_CompleteAndEmbed(t *testing.T) {
	t.Parallel()

	var gotSystem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			var req struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			_ = json.Unmarshal(body, &req)
			if len(req.Messages) > 0 {
				gotSystem = req.Messages[0].Content
			}
			_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  hello there  "}}]}`)
		case "/embeddings":
			_, _ = io.WriteString(w, `{"object":"list","model":"e","usage":{"prompt_tokens":1,"total_tokens":1},
				"data":[{"object":"embedding","index":1,"embedding":[0.5,0.25]},{"object":"embedding","index":0,"embedding":[1,0]}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(srv.Client(), OpenAIConfig{BaseURL: srv.URL, APIKey: "k", MaxRetries: 1})
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), GenerationRequest{Preamble: "persona", Prompt: "go"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, "persona", gotSystem)

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0.5, 0.25}}, vecs)
}

func TestNewProvider_Unknown(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(context.Background(), nil, ProviderConfig{Provider: "mystery"})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), nil, ProviderConfig{Provider: "openai"})
	assert.Error(t, err, "missing api key must fail")
}

func TestOpenAIConfig_MaxRetries(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultOpenAIMaxRetries, OpenAIConfig{}.withDefaults().MaxRetries)
	assert.Equal(t, 0, OpenAIConfig{MaxRetries: -1}.withDefaults().MaxRetries)
	assert.Equal(t, 2, OpenAIConfig{MaxRetries: 2}.withDefaults().MaxRetries)
}
