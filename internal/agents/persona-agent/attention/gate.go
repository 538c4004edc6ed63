package attention

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const DefaultMaxHistory = 10

type Config struct {
	// BotNames are the handles and display names the agent answers to.
	BotNames []string
	// MaxHistory bounds the thread entries rendered into a reply question.
	MaxHistory int
}

type Gate struct {
	engine Engine
	cfg    Config
	logger *zap.Logger
}

func NewGate(engine Engine, cfg Config, logger *zap.Logger) *Gate {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{engine: engine, cfg: cfg, logger: logger.Named("attention")}
}

func (g *Gate) BotNames() []string { return g.cfg.BotNames }

func (g *Gate) botName() string {
	if len(g.cfg.BotNames) == 0 {
		return "the bot"
	}
	return g.cfg.BotNames[0]
}

// IsSelf reports whether author is one of the bot's own identities.
func (g *Gate) IsSelf(author string) bool {
	return IsSelfAuthored(author, g.cfg.BotNames...)
}

func (g *Gate) ShouldReply(ctx context.Context, c Context) Command {
	if strings.TrimSpace(c.Message) == "" {
		return IgnoreEmpty
	}
	if len(c.History) > g.cfg.MaxHistory {
		c.History = c.History[len(c.History)-g.cfg.MaxHistory:]
	}
	v, err := g.engine.Decide(ctx, Question{Action: ActionReply, BotName: g.botName(), Context: c})
	if err != nil {
		g.logger.Warn("reply decision failed", zap.Error(err))
		return IgnoreEngineFailure
	}
	switch v {
	case VerdictYes:
		return Respond
	case VerdictStop:
		return Stop
	default:
		return IgnoreLowRelevance
	}
}

func (g *Gate) ShouldLike(ctx context.Context, text string) bool {
	return g.yesNo(ctx, ActionLike, text)
}

func (g *Gate) ShouldRetweet(ctx context.Context, text string) bool {
	return g.yesNo(ctx, ActionRetweet, text)
}

func (g *Gate) ShouldQuote(ctx context.Context, text string) bool {
	return g.yesNo(ctx, ActionQuote, text)
}

func (g *Gate) yesNo(ctx context.Context, action Action, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	v, err := g.engine.Decide(ctx, Question{
		Action:  action,
		BotName: g.botName(),
		Context: Context{Message: text},
	})
	if err != nil {
		g.logger.Warn("decision failed", zap.String("action", string(action)), zap.Error(err))
		return false
	}
	return v == VerdictYes
}
