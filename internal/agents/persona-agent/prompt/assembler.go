// Package prompt builds generation requests for posts, replies and quotes.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/infra"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/knowledge"
	"github.com/spyrux/persona-bot/pkg/x/llm"
)

type Kind int

const (
	KindPost Kind = iota
	KindReply
	KindQuote
)

func (k Kind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindReply:
		return "reply"
	case KindQuote:
		return "quote"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	TimeLayout = "03:04:05 PM, 2006-01-02"

	LengthInstruction = "Please keep your responses concise and under 280 characters."
	ToneInstruction   = "Respond naturally and conversationally in 1-2 short sentences. Avoid flowery language and excessive punctuation."
	MediaInstruction  = "If the tweet contains images, read it and incorporate them into your response."
	PostPrompt        = "Share brief thoughts or observation in one or two short sentences."
)

// PersonaSource yields the current persona instructions.
type PersonaSource interface {
	Name() string
	Preamble() string
}

type Retriever interface {
	RetrieveSimilar(ctx context.Context, query string, k int) ([]knowledge.Snippet, error)
}

// Input carries the per-call material; unused fields are ignored per kind.
type Input struct {
	// Text is the triggering post for replies and quotes.
	Text     string
	Thread   content.Thread
	HasMedia bool
}

type Assembler struct {
	persona   PersonaSource
	retriever Retriever
	now       func() time.Time
	loc       *time.Location
	topK      int
	logger    *zap.Logger
}

type Option func(*Assembler)

func WithClock(now func() time.Time) Option { return func(a *Assembler) { a.now = now } }

func WithLocation(loc *time.Location) Option { return func(a *Assembler) { a.loc = loc } }

func WithTopK(k int) Option { return func(a *Assembler) { a.topK = k } }

func NewAssembler(persona PersonaSource, retriever Retriever, logger *zap.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assembler{
		persona:   persona,
		retriever: retriever,
		now:       time.Now,
		loc:       time.Local,
		topK:      infra.SnippetCount,
		logger:    logger.Named("prompt"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	return a
}

// Assemble builds a fresh request for kind. It fails only on an unknown kind
// or a missing triggering text; retrieval problems just drop the snippets.
func (a *Assembler) Assemble(ctx context.Context, kind Kind, in Input) (llm.GenerationRequest, error) {
	req := llm.GenerationRequest{
		Preamble: a.persona.Preamble(),
		Contexts: []string{
			"Current time: " + a.now().In(a.loc).Format(TimeLayout),
			LengthInstruction,
			ToneInstruction,
		},
	}

	name := a.persona.Name()
	var query string
	switch kind {
	case KindPost:
		req.Contexts = append(req.Contexts, fmt.Sprintf(
			"Use the provided documents to draw inspiration from lines that you, %s, would say.", name))
		req.Prompt = PostPrompt
		query = PostPrompt
	case KindReply:
		if strings.TrimSpace(in.Text) == "" {
			return llm.GenerationRequest{}, fmt.Errorf("reply needs the triggering text")
		}
		if in.HasMedia {
			req.Contexts = append(req.Contexts, MediaInstruction)
		}
		if h := renderHistory(in.Thread); h != "" {
			req.Contexts = append(req.Contexts, h)
		}
		req.Prompt = in.Text
		query = in.Text
	case KindQuote:
		if strings.TrimSpace(in.Text) == "" {
			return llm.GenerationRequest{}, fmt.Errorf("quote needs the quoted text")
		}
		req.Contexts = append(req.Contexts, fmt.Sprintf(
			"Write a natural reply to the quoted tweet in 1-2 short sentences. Use the provided documents to find similar lines that you, %s, would say. Keep it conversational and relevant.", name))
		req.Prompt = in.Text
		query = in.Text
	default:
		return llm.GenerationRequest{}, fmt.Errorf("unknown generation kind %s", kind)
	}

	req.Documents = a.snippets(ctx, kind, query)
	return req, nil
}

func (a *Assembler) snippets(ctx context.Context, kind Kind, query string) []llm.Document {
	if a.retriever == nil || a.topK <= 0 {
		return nil
	}
	found, err := a.retriever.RetrieveSimilar(ctx, query, a.topK)
	if err != nil {
		a.logger.Warn("knowledge retrieval failed, continuing without snippets",
			zap.Stringer("kind", kind), zap.Error(err))
		return nil
	}
	if len(found) > a.topK {
		found = found[:a.topK]
	}
	docs := make([]llm.Document, 0, len(found))
	for _, s := range found {
		docs = append(docs, llm.Document{ID: s.ID, Text: s.Text})
	}
	return docs
}

// renderHistory lists the ancestors of the thread leaf, oldest first.
func renderHistory(th content.Thread) string {
	anc := th.Ancestors()
	if len(anc) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conversation so far (oldest first):")
	for _, it := range anc {
		who := it.Username
		if who == "" {
			who = "unknown"
		}
		fmt.Fprintf(&b, "\n@%s: %s", who, strings.TrimSpace(it.Text))
	}
	return b.String()
}
