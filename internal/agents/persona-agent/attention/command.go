// Package attention decides whether the agent engages with a piece of content.
package attention

import (
	"strings"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
)

// Command is the outcome of a reply decision. Only Respond engages; the
// other variants say why the agent stays quiet.
type Command int

const (
	Respond Command = iota
	IgnoreLowRelevance
	IgnoreSelfAuthored
	IgnoreEmpty
	IgnoreEngineFailure
	Stop
)

func (c Command) Engages() bool { return c == Respond }

func (c Command) String() string {
	switch c {
	case Respond:
		return "respond"
	case IgnoreLowRelevance:
		return "ignore_low_relevance"
	case IgnoreSelfAuthored:
		return "ignore_self_authored"
	case IgnoreEmpty:
		return "ignore_empty"
	case IgnoreEngineFailure:
		return "ignore_engine_failure"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

type HistoryEntry struct {
	ID   string
	Text string
}

// Context is everything a reply decision looks at. Built per decision.
type Context struct {
	Message     string
	Mentions    map[string]struct{}
	History     []HistoryEntry
	ChannelKind content.ChannelKind
	Source      content.Source
}

// NewContext derives the decision context for the leaf of th.
func NewContext(th content.Thread) Context {
	leaf, _ := th.Leaf()
	return Context{
		Message:     leaf.Text,
		Mentions:    ExtractMentions(leaf.Text),
		History:     HistoryFromThread(th),
		ChannelKind: leaf.ChannelKind,
		Source:      leaf.Source,
	}
}

// HistoryFromThread lists every item of th as (source id, text), oldest first.
func HistoryFromThread(th content.Thread) []HistoryEntry {
	out := make([]HistoryEntry, 0, th.Len())
	for _, it := range th.Items {
		out = append(out, HistoryEntry{ID: it.SourceID, Text: it.Text})
	}
	return out
}

// ExtractMentions collects whitespace separated tokens starting with '@',
// minus the prefix. Trailing punctuation stays part of the handle and a bare
// '@' yields the empty handle.
func ExtractMentions(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range strings.Fields(text) {
		if strings.HasPrefix(tok, "@") {
			out[tok[1:]] = struct{}{}
		}
	}
	return out
}

// IsSelfAuthored compares author against the bot's names, ignoring case and
// a leading '@'.
func IsSelfAuthored(author string, botNames ...string) bool {
	a := normalizeHandle(author)
	if a == "" {
		return false
	}
	for _, n := range botNames {
		if normalizeHandle(n) == a {
			return true
		}
	}
	return false
}

func normalizeHandle(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}
