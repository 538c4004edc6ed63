package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/attention"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/media"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/prompt"
	"github.com/spyrux/persona-bot/pkg/x/randx"
)

func (s *Scheduler) postNew(ctx context.Context) {
	chunks := s.generate(ctx, prompt.KindPost, prompt.Input{})
	if chunks == nil {
		return
	}
	text := chunks[0]

	var mediaIDs []string
	if s.wantImage() {
		if id, err := s.attachImage(ctx, text); err != nil {
			s.logger.Warn("image post failed, posting text only", zap.Error(err))
		} else {
			mediaIDs = []string{id}
		}
	}

	posted, err := s.Platform.Post(ctx, text, mediaIDs)
	if err != nil {
		s.logger.Error("post failed", zap.Error(err))
		return
	}
	s.logger.Info("posted", zap.String("id", posted.SourceID), zap.Int("media", len(mediaIDs)))
	s.record(ctx, posted)
}

func (s *Scheduler) wantImage() bool {
	p := s.cfg.Timing.ImagePercent
	if s.Images == nil || p <= 0 {
		return false
	}
	yes, err := randx.ChooseWeighted(s.rng, []bool{true, false}, []int{p, 100 - p})
	return err == nil && yes
}

func (s *Scheduler) attachImage(ctx context.Context, text string) (string, error) {
	img, err := s.Images.Generate(ctx, media.Prompt(text, s.cfg.ImageStyle()))
	if err != nil {
		return "", err
	}
	return s.Platform.UploadMedia(ctx, img.Data, img.MIME)
}

func (s *Scheduler) processTimeline(ctx context.Context) {
	items, err := s.Platform.FetchTimeline(ctx, s.cfg.Timing.TimelineLimit)
	if err != nil {
		s.logger.Error("fetch timeline failed", zap.Error(err))
		return
	}
	s.logger.Info("processing timeline", zap.Int("items", len(items)))

	for i, it := range items {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			d := randx.UniformDuration(s.rng, s.cfg.Timing.ItemDelayMin, s.cfg.Timing.ItemDelayMax)
			s.logger.Debug("pausing before next timeline item", zap.Duration("for", d))
			if !s.sleep(ctx, d) {
				return
			}
		}
		if it.Role == content.RoleBot || s.Gate.IsSelf(it.Username) {
			s.logger.Debug("skipping own tweet", zap.String("id", it.SourceID))
			continue
		}

		r, err := s.chooseReaction()
		if err != nil {
			s.logger.Error("invalid reaction weights", zap.Error(err))
			return
		}
		switch r {
		case reactQuote:
			s.handleQuote(ctx, it)
		case reactRetweet:
			s.handleRetweet(ctx, it)
		case reactLike:
			s.handleLike(ctx, it)
		}
	}
}

func (s *Scheduler) handleQuote(ctx context.Context, it content.Item) {
	if !s.Gate.ShouldQuote(ctx, it.Text) {
		s.logger.Debug("not quoting", zap.String("id", it.SourceID))
		return
	}
	s.record(ctx, it)

	chunks := s.generate(ctx, prompt.KindQuote, prompt.Input{Text: it.Text, HasMedia: it.HasMedia()})
	if chunks == nil {
		return
	}
	sent, err := s.Platform.Quote(ctx, chunks[0], it.SourceID)
	if err != nil {
		s.logger.Error("quote failed", zap.String("target", it.SourceID), zap.Error(err))
		return
	}
	s.logger.Info("quoted", zap.String("target", it.SourceID), zap.String("id", sent.SourceID))
	s.record(ctx, sent)
}

func (s *Scheduler) handleRetweet(ctx context.Context, it content.Item) {
	if !s.Gate.ShouldRetweet(ctx, it.Text) {
		s.logger.Debug("not retweeting", zap.String("id", it.SourceID))
		return
	}
	if err := s.Platform.Retweet(ctx, it.SourceID); err != nil {
		s.logger.Error("retweet failed", zap.String("target", it.SourceID), zap.Error(err))
		return
	}
	s.logger.Info("retweeted", zap.String("target", it.SourceID))
}

func (s *Scheduler) handleLike(ctx context.Context, it content.Item) {
	if !s.Gate.ShouldLike(ctx, it.Text) {
		s.logger.Debug("not liking", zap.String("id", it.SourceID))
		return
	}
	if err := s.Platform.Like(ctx, it.SourceID); err != nil {
		s.logger.Error("like failed", zap.String("target", it.SourceID), zap.Error(err))
		return
	}
	s.logger.Info("liked", zap.String("target", it.SourceID))
}

// HandleMention runs the reply path for one incoming item. The self check
// comes before anything else; the gate never sees the agent's own items.
func (s *Scheduler) HandleMention(ctx context.Context, it content.Item) {
	if it.Role == content.RoleBot || s.Gate.IsSelf(it.Username) {
		s.logger.Debug("ignoring mention", zap.String("id", it.SourceID),
			zap.Stringer("reason", attention.IgnoreSelfAuthored))
		return
	}
	if s.Store != nil {
		if err := s.Store.CreateMessage(ctx, it); err != nil {
			s.logger.Error("store mention failed, skipping", zap.String("id", it.SourceID), zap.Error(err))
			return
		}
	}

	th := s.threads.Build(ctx, it)
	actx := attention.NewContext(th)
	cmd := s.Gate.ShouldReply(ctx, actx)
	s.logger.Debug("reply decision",
		zap.String("id", it.SourceID),
		zap.Int("thread", th.Len()),
		zap.Int("mentions", len(actx.Mentions)),
		zap.Stringer("decision", cmd),
	)
	if !cmd.Engages() {
		return
	}

	chunks := s.generate(ctx, prompt.KindReply, prompt.Input{Text: it.Text, Thread: th, HasMedia: it.HasMedia()})
	if chunks == nil {
		return
	}
	sent, err := s.Platform.Reply(ctx, chunks[0], it.SourceID)
	if err != nil {
		s.logger.Error("reply failed", zap.String("target", it.SourceID), zap.Error(err))
		return
	}
	s.logger.Info("replied", zap.String("target", it.SourceID), zap.String("id", sent.SourceID))
	s.record(ctx, sent)
}

// pollMentions answers mentions not seen before, in fetch order.
func (s *Scheduler) pollMentions(ctx context.Context) {
	items, err := s.Platform.FetchMentions(ctx, s.cfg.Timing.MentionsLimit)
	if err != nil {
		s.logger.Error("fetch mentions failed", zap.Error(err))
		return
	}
	for _, it := range items {
		if ctx.Err() != nil {
			return
		}
		if s.Store != nil {
			seen, err := s.Store.HasMessage(ctx, it.Source, it.SourceID)
			if err != nil {
				s.logger.Warn("mention lookup failed", zap.String("id", it.SourceID), zap.Error(err))
				continue
			}
			if seen {
				continue
			}
		}
		s.HandleMention(ctx, it)
	}
}
