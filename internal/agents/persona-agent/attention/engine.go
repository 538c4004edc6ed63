package attention

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/infra"
	"github.com/spyrux/persona-bot/pkg/x/llm"
)

type Action string

const (
	ActionReply   Action = "reply"
	ActionLike    Action = "like"
	ActionRetweet Action = "retweet"
	ActionQuote   Action = "quote"
)

// Question is one decision put to an Engine.
type Question struct {
	Action  Action
	BotName string
	Context Context
}

type Verdict int

const (
	VerdictNo Verdict = iota
	VerdictYes
	VerdictStop
)

type Engine interface {
	Decide(ctx context.Context, q Question) (Verdict, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, q Question) (Verdict, error)

func (f EngineFunc) Decide(ctx context.Context, q Question) (Verdict, error) { return f(ctx, q) }

// ModelEngine asks a completion model, one prompt template per action.
type ModelEngine struct {
	completer  llm.Completer
	maxHistory int
}

func NewModelEngine(completer llm.Completer, maxHistory int) *ModelEngine {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &ModelEngine{completer: completer, maxHistory: maxHistory}
}

func (e *ModelEngine) Decide(ctx context.Context, q Question) (Verdict, error) {
	prompt, err := e.render(q)
	if err != nil {
		return VerdictNo, err
	}
	out, err := e.completer.Complete(ctx, llm.GenerationRequest{Prompt: prompt})
	if err != nil {
		return VerdictNo, err
	}
	return ParseVerdict(q.Action, out)
}

func (e *ModelEngine) render(q Question) (string, error) {
	tpl, err := infra.GateTemplate(string(q.Action))
	if err != nil {
		return "", err
	}

	history := q.Context.History
	if len(history) > e.maxHistory {
		history = history[len(history)-e.maxHistory:]
	}
	var hb strings.Builder
	for _, h := range history {
		fmt.Fprintf(&hb, "[%s] %s\n", h.ID, strings.TrimSpace(h.Text))
	}
	if hb.Len() == 0 {
		hb.WriteString("(none)\n")
	}

	mentions := make([]string, 0, len(q.Context.Mentions))
	for m := range q.Context.Mentions {
		mentions = append(mentions, "@"+m)
	}
	sort.Strings(mentions)
	mentionLine := strings.Join(mentions, " ")
	if mentionLine == "" {
		mentionLine = "(none)"
	}

	r := strings.NewReplacer(
		"{{BOT_NAME}}", q.BotName,
		"{{MESSAGE}}", strings.TrimSpace(q.Context.Message),
		"{{MENTIONS}}", mentionLine,
		"{{HISTORY}}", strings.TrimRight(hb.String(), "\n"),
		"{{CHANNEL}}", string(q.Context.ChannelKind),
		"{{SOURCE}}", string(q.Context.Source),
	)
	return r.Replace(tpl), nil
}

// ParseVerdict reads the first word of a model answer.
func ParseVerdict(action Action, out string) (Verdict, error) {
	fields := strings.Fields(strings.ToUpper(out))
	if len(fields) == 0 {
		return VerdictNo, llm.ErrEmptyCompletion
	}
	word := strings.Trim(fields[0], ".,:;!\"'*`[]()")
	if action == ActionReply {
		switch word {
		case "RESPOND":
			return VerdictYes, nil
		case "IGNORE":
			return VerdictNo, nil
		case "STOP":
			return VerdictStop, nil
		}
	} else {
		switch word {
		case "YES":
			return VerdictYes, nil
		case "NO":
			return VerdictNo, nil
		}
	}
	return VerdictNo, fmt.Errorf("unrecognised %s verdict %q", action, fields[0])
}
