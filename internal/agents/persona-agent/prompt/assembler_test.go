package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/knowledge"
)

type staticPersona struct{ name, preamble string }

func (p staticPersona) Name() string     { return p.name }
func (p staticPersona) Preamble() string { return p.preamble }

type fakeRetriever struct {
	snippets []knowledge.Snippet
	err      error
	queries  []string
	ks       []int
}

func (r *fakeRetriever) RetrieveSimilar(_ context.Context, query string, k int) ([]knowledge.Snippet, error) {
	r.queries = append(r.queries, query)
	r.ks = append(r.ks, k)
	return r.snippets, r.err
}

func manySnippets(n int) []knowledge.Snippet {
	out := make([]knowledge.Snippet, n)
	for i := range out {
		out[i] = knowledge.Snippet{ID: string(rune('a' + i)), Text: "line " + string(rune('a'+i))}
	}
	return out
}

func newTestAssembler(r Retriever) *Assembler {
	clock := func() time.Time { return time.Date(2026, 3, 7, 15, 4, 5, 0, time.UTC) }
	return NewAssembler(staticPersona{name: "Gi-hun", preamble: "You are Gi-hun."}, r, nil,
		WithClock(clock), WithLocation(time.UTC))
}

func TestAssemble_Post(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{snippets: manySnippets(3)}
	req, err := newTestAssembler(r).Assemble(context.Background(), KindPost, Input{})
	require.NoError(t, err)

	assert.Equal(t, "You are Gi-hun.", req.Preamble)
	assert.Equal(t, PostPrompt, req.Prompt)
	assert.Equal(t, []string{
		"Current time: 03:04:05 PM, 2026-03-07",
		LengthInstruction,
		ToneInstruction,
		"Use the provided documents to draw inspiration from lines that you, Gi-hun, would say.",
	}, req.Contexts)
	assert.Len(t, req.Documents, 3)
	assert.Equal(t, []int{4}, r.ks)
}

func TestAssemble_QuoteCapsSnippets(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{snippets: manySnippets(7)}
	req, err := newTestAssembler(r).Assemble(context.Background(), KindQuote, Input{Text: "who wants to play?"})
	require.NoError(t, err)

	assert.Equal(t, "who wants to play?", req.Prompt)
	assert.Equal(t, []string{"who wants to play?"}, r.queries)
	assert.Len(t, req.Documents, 4)
	assert.Equal(t, "a", req.Documents[0].ID)
	assert.Contains(t, req.Contexts[len(req.Contexts)-1], "find similar lines that you, Gi-hun, would say")
}

func TestAssemble_ReplyWithMediaAndHistory(t *testing.T) {
	t.Parallel()

	th := content.Thread{Items: []content.Item{
		{Username: "alice", Text: "root post"},
		{Username: "", Text: " middle "},
		{Username: "bob", Text: "@gihun what now?"},
	}}
	req, err := newTestAssembler(&fakeRetriever{}).Assemble(context.Background(), KindReply,
		Input{Text: "@gihun what now?", Thread: th, HasMedia: true})
	require.NoError(t, err)

	require.Len(t, req.Contexts, 5)
	assert.Equal(t, MediaInstruction, req.Contexts[3])
	assert.Equal(t, "Conversation so far (oldest first):\n@alice: root post\n@unknown: middle", req.Contexts[4])
	assert.Empty(t, req.Documents)
}

func TestAssemble_ReplyWithoutMediaOmitsInstruction(t *testing.T) {
	t.Parallel()

	req, err := newTestAssembler(nil).Assemble(context.Background(), KindReply, Input{Text: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, req.Contexts, MediaInstruction)
	assert.Len(t, req.Contexts, 3)
}

func TestAssemble_RetrievalFailureDegrades(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{err: errors.New("db locked")}
	req, err := newTestAssembler(r).Assemble(context.Background(), KindQuote, Input{Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, req.Documents)
}

func TestAssemble_Errors(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(nil)
	_, err := a.Assemble(context.Background(), KindReply, Input{Text: "  "})
	assert.Error(t, err)
	_, err = a.Assemble(context.Background(), KindQuote, Input{})
	assert.Error(t, err)
	_, err = a.Assemble(context.Background(), Kind(9), Input{Text: "x"})
	assert.ErrorContains(t, err, "kind(9)")
}

func TestAssemble_LocalTimeZone(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*3600)
	a := NewAssembler(staticPersona{name: "n"}, nil, nil,
		WithClock(func() time.Time { return time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC) }),
		WithLocation(tokyo))
	req, err := a.Assemble(context.Background(), KindPost, Input{})
	require.NoError(t, err)
	assert.Equal(t, "Current time: 08:00:00 AM, 2026-03-08", req.Contexts[0])
}

func TestChunk(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 300)
	got := Chunk(long, 280)
	require.Len(t, got, 2)
	assert.Len(t, got[0], 280)
	assert.Len(t, got[1], 20)

	assert.Equal(t, []string{"hello"}, Chunk("  hello \n", 280))
	assert.Nil(t, Chunk("   ", 280))
	assert.Equal(t, []string{strings.Repeat("é", 280)}, Chunk(strings.Repeat("é", 280), 280))

	multi := Chunk(strings.Repeat("ab", 281), 280)
	require.Len(t, multi, 3)
	assert.Equal(t, 2, len([]rune(multi[2])))
}
