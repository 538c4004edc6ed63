// Package llm wraps the completion and embedding providers behind two small
// capability interfaces.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyCompletion = errors.New("llm: empty completion")

// Document is a retrieved snippet attached to a generation request.
type Document struct {
	ID   string
	Text string
}

// GenerationRequest is the provider-independent shape of one completion call.
type GenerationRequest struct {
	Preamble  string
	Contexts  []string
	Documents []Document
	Prompt    string
}

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role
	Content string
}

// System renders preamble, contexts and documents into one instruction block.
func (r GenerationRequest) System() string {
	var b strings.Builder
	if p := strings.TrimSpace(r.Preamble); p != "" {
		b.WriteString(p)
	}
	for _, c := range r.Contexts {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c)
	}
	if len(r.Documents) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Relevant knowledge:")
		for _, d := range r.Documents {
			fmt.Fprintf(&b, "\n<document id=%q>\n%s\n</document>", d.ID, strings.TrimSpace(d.Text))
		}
	}
	return b.String()
}

func (r GenerationRequest) Messages() []Message {
	var out []Message
	if s := r.System(); s != "" {
		out = append(out, Message{Role: RoleSystem, Content: s})
	}
	out = append(out, Message{Role: RoleUser, Content: r.Prompt})
	return out
}

type Completer interface {
	Complete(ctx context.Context, req GenerationRequest) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider is a model backend that can both complete and embed.
type Provider interface {
	Completer
	Embedder
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req GenerationRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req GenerationRequest) (string, error) {
	return f(ctx, req)
}
