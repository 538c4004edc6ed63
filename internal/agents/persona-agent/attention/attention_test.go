package attention

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/pkg/x/llm"
)

func TestExtractMentions_KeepsPunctuation(t *testing.T) {
	t.Parallel()

	got := ExtractMentions("hello @Alice and @bob!")
	assert.Equal(t, map[string]struct{}{"Alice": {}, "bob!": {}}, got)

	assert.Empty(t, ExtractMentions("no handles here, just an email a@b.c"))
	assert.Equal(t, map[string]struct{}{"": {}}, ExtractMentions("lonely @ sign"))
}

func TestIsSelfAuthored(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSelfAuthored("GiHun", "gihun"))
	assert.True(t, IsSelfAuthored("@gihun", "Seong Gi-hun", "GIHUN"))
	assert.False(t, IsSelfAuthored("alice", "gihun"))
	assert.False(t, IsSelfAuthored("", "gihun"))
}

func TestNewContext(t *testing.T) {
	t.Parallel()

	th := content.Thread{Items: []content.Item{
		{SourceID: "1", Text: "root"},
		{SourceID: "2", Text: "@gihun what now?", ChannelKind: content.ChannelText, Source: content.SourceTwitter},
	}}
	c := NewContext(th)
	assert.Equal(t, "@gihun what now?", c.Message)
	assert.Contains(t, c.Mentions, "gihun")
	assert.Equal(t, []HistoryEntry{{ID: "1", Text: "root"}, {ID: "2", Text: "@gihun what now?"}}, c.History)
	assert.Equal(t, content.SourceTwitter, c.Source)
}

func TestGate_ShouldReply(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		verdict Verdict
		err     error
		want    Command
	}{
		{"respond", VerdictYes, nil, Respond},
		{"ignore", VerdictNo, nil, IgnoreLowRelevance},
		{"stop", VerdictStop, nil, Stop},
		{"engine failure", VerdictYes, errors.New("timeout"), IgnoreEngineFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGate(EngineFunc(func(context.Context, Question) (Verdict, error) {
				return tc.verdict, tc.err
			}), Config{BotNames: []string{"gihun"}}, zaptest.NewLogger(t))
			assert.Equal(t, tc.want, g.ShouldReply(context.Background(), Context{Message: "hi"}))
		})
	}
}

func TestGate_EmptyTextNeverAsksEngine(t *testing.T) {
	t.Parallel()

	calls := 0
	g := NewGate(EngineFunc(func(context.Context, Question) (Verdict, error) {
		calls++
		return VerdictYes, nil
	}), Config{}, nil)

	assert.Equal(t, IgnoreEmpty, g.ShouldReply(context.Background(), Context{Message: "  "}))
	assert.False(t, g.ShouldLike(context.Background(), ""))
	assert.False(t, g.ShouldRetweet(context.Background(), "\n"))
	assert.False(t, g.ShouldQuote(context.Background(), ""))
	assert.Zero(t, calls)
}

func TestGate_TrimsHistory(t *testing.T) {
	t.Parallel()

	var got Question
	g := NewGate(EngineFunc(func(_ context.Context, q Question) (Verdict, error) {
		got = q
		return VerdictYes, nil
	}), Config{BotNames: []string{"gihun"}, MaxHistory: 2}, nil)
	assert.Equal(t, []string{"gihun"}, g.BotNames())

	g.ShouldReply(context.Background(), Context{
		Message: "x",
		History: []HistoryEntry{{ID: "1"}, {ID: "2"}, {ID: "3"}},
	})
	assert.Equal(t, []HistoryEntry{{ID: "2"}, {ID: "3"}}, got.Context.History)
	assert.Equal(t, ActionReply, got.Action)
	assert.Equal(t, "gihun", got.BotName)
}

func TestGate_YesNoActions(t *testing.T) {
	t.Parallel()

	g := NewGate(EngineFunc(func(_ context.Context, q Question) (Verdict, error) {
		switch q.Action {
		case ActionLike:
			return VerdictYes, nil
		case ActionRetweet:
			return VerdictNo, nil
		default:
			return VerdictNo, errors.New("boom")
		}
	}), Config{}, zaptest.NewLogger(t))

	assert.True(t, g.ShouldLike(context.Background(), "nice"))
	assert.False(t, g.ShouldRetweet(context.Background(), "nice"))
	assert.False(t, g.ShouldQuote(context.Background(), "nice"))
}

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	v, err := ParseVerdict(ActionReply, "RESPOND\nbecause it asks a question")
	require.NoError(t, err)
	assert.Equal(t, VerdictYes, v)

	v, err = ParseVerdict(ActionReply, "**stop**")
	require.NoError(t, err)
	assert.Equal(t, VerdictStop, v)

	v, err = ParseVerdict(ActionLike, "Yes.")
	require.NoError(t, err)
	assert.Equal(t, VerdictYes, v)

	_, err = ParseVerdict(ActionLike, "RESPOND")
	assert.Error(t, err)

	_, err = ParseVerdict(ActionQuote, "   ")
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestModelEngine_RendersTemplate(t *testing.T) {
	t.Parallel()

	var prompt string
	e := NewModelEngine(llm.CompleterFunc(func(_ context.Context, req llm.GenerationRequest) (string, error) {
		prompt = req.Prompt
		return "RESPOND", nil
	}), 0)

	v, err := e.Decide(context.Background(), Question{
		Action:  ActionReply,
		BotName: "Gi-hun",
		Context: Context{
			Message:     "@gihun are you ok?",
			Mentions:    map[string]struct{}{"gihun": {}},
			History:     []HistoryEntry{{ID: "1", Text: "root post"}},
			ChannelKind: content.ChannelText,
			Source:      content.SourceTwitter,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictYes, v)
	assert.Contains(t, prompt, "Gi-hun")
	assert.Contains(t, prompt, "[1] root post")
	assert.Contains(t, prompt, "@gihun are you ok?")
	assert.Contains(t, prompt, "Mentioned handles: @gihun")
	assert.NotContains(t, prompt, "{{")
}
