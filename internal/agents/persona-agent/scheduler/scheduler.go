// Package scheduler runs the engagement loop: it alternates between posting
// and reacting to the home timeline, pacing itself with jittered sleeps.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/attention"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/infra"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/media"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/prompt"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/thread"
	"github.com/spyrux/persona-bot/pkg/x/llm"
	"github.com/spyrux/persona-bot/pkg/x/randx"
)

type Gate interface {
	IsSelf(author string) bool
	ShouldReply(ctx context.Context, c attention.Context) attention.Command
	ShouldLike(ctx context.Context, text string) bool
	ShouldRetweet(ctx context.Context, text string) bool
	ShouldQuote(ctx context.Context, text string) bool
}

type Assembler interface {
	Assemble(ctx context.Context, kind prompt.Kind, in prompt.Input) (llm.GenerationRequest, error)
}

// MessageStore records the items the agent observed or sent.
type MessageStore interface {
	CreateMessage(ctx context.Context, it content.Item) error
	HasMessage(ctx context.Context, source content.Source, sourceID string) (bool, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (media.Image, error)
}

type family int

const (
	familyPost family = iota
	familyTimeline
)

func (f family) String() string {
	if f == familyPost {
		return "post"
	}
	return "timeline"
}

type reaction int

const (
	reactQuote reaction = iota
	reactRetweet
	reactLike
)

func (r reaction) String() string {
	switch r {
	case reactQuote:
		return "quote"
	case reactRetweet:
		return "retweet"
	default:
		return "like"
	}
}

// Reaction weights for timeline items: quote 2, retweet 1, like 1.
var reactionWeights = []int{2, 1, 1}

type Deps struct {
	Platform  Platform
	Gate      Gate
	Assembler Assembler
	Completer llm.Completer
	Store     MessageStore
	// Images is optional; nil disables media posts.
	Images ImageGenerator
}

type Config struct {
	Timing infra.Timing
	// ImageStyle is read on every media post so persona reloads apply.
	ImageStyle func() string
}

type Scheduler struct {
	Deps
	threads *thread.Builder
	cfg     Config
	logger  *zap.Logger

	rng   randx.Intn
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(deps Deps, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ImageStyle == nil {
		cfg.ImageStyle = func() string { return "" }
	}
	logger = logger.Named("scheduler")
	threads := thread.NewBuilder(deps.Platform, logger)
	if cfg.Timing.ThreadDepth > 0 {
		threads = threads.WithMaxDepth(cfg.Timing.ThreadDepth)
	}
	return &Scheduler{
		Deps:    deps,
		threads: threads,
		cfg:     cfg,
		logger:  logger,
		rng:     randx.New(),
		sleep:   llm.SleepWithContext,
	}
}

// Run drives the loop until ctx is cancelled, then returns nil. Failures
// inside an iteration are logged and never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	t := s.cfg.Timing
	s.logger.Info("engagement loop started",
		zap.Int("post_weight", t.PostWeight),
		zap.Int("timeline_weight", t.TimelineWeight),
		zap.Int("timeline_limit", t.TimelineLimit),
		zap.Bool("reply_to_mentions", t.ReplyToMentions),
	)
	for {
		if ctx.Err() != nil {
			s.logger.Info("engagement loop stopped")
			return nil
		}
		s.iterate(ctx)

		d := randx.UniformDuration(s.rng, t.LoopDelayMin, t.LoopDelayMax)
		s.logger.Info("next iteration scheduled", zap.Duration("in", d))
		if !s.sleep(ctx, d) {
			s.logger.Info("engagement loop stopped")
			return nil
		}
	}
}

func (s *Scheduler) iterate(ctx context.Context) {
	f, err := s.chooseFamily()
	if err != nil {
		s.logger.Error("invalid action weights", zap.Error(err))
		return
	}
	s.logger.Debug("iteration", zap.Stringer("action", f))
	switch f {
	case familyPost:
		s.postNew(ctx)
	case familyTimeline:
		s.processTimeline(ctx)
	}
	if s.cfg.Timing.ReplyToMentions {
		s.pollMentions(ctx)
	}
}

func (s *Scheduler) chooseFamily() (family, error) {
	return randx.ChooseWeighted(s.rng,
		[]family{familyPost, familyTimeline},
		[]int{s.cfg.Timing.PostWeight, s.cfg.Timing.TimelineWeight})
}

func (s *Scheduler) chooseReaction() (reaction, error) {
	return randx.ChooseWeighted(s.rng, []reaction{reactQuote, reactRetweet, reactLike}, reactionWeights)
}

// generate assembles, completes and chunks; it returns the chunks or nil
// after logging why there is nothing to send.
func (s *Scheduler) generate(ctx context.Context, kind prompt.Kind, in prompt.Input) []string {
	req, err := s.Assembler.Assemble(ctx, kind, in)
	if err != nil {
		s.logger.Warn("assemble failed", zap.Stringer("kind", kind), zap.Error(err))
		return nil
	}
	out, err := s.Completer.Complete(ctx, req)
	if err != nil {
		s.logger.Warn("generation failed", zap.Stringer("kind", kind), zap.Error(err))
		return nil
	}
	chunks := prompt.Chunk(out, infra.TweetMaxChars)
	if len(chunks) == 0 {
		s.logger.Warn("generation returned empty text", zap.Stringer("kind", kind))
		return nil
	}
	if len(chunks) > 1 {
		s.logger.Info("generated text exceeds one tweet, sending first segment only",
			zap.Stringer("kind", kind),
			zap.Int("segments", len(chunks)),
			zap.Strings("dropped", chunks[1:]),
		)
	}
	return chunks
}

func (s *Scheduler) record(ctx context.Context, it content.Item) {
	if s.Store == nil {
		return
	}
	if err := s.Store.CreateMessage(ctx, it); err != nil {
		s.logger.Warn("store message failed", zap.String("id", it.SourceID), zap.Error(err))
	}
}
