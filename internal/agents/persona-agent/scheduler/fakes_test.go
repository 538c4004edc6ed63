package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/attention"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/knowledge"
	"github.com/spyrux/persona-bot/internal/agents/persona-agent/media"
	"github.com/spyrux/persona-bot/pkg/api/twitter"
)

var errTransport = errors.New("connection reset")

// constRand always draws the same value, modulo n.
type constRand int

func (c constRand) IntN(n int) int { return int(c) % n }

type sent struct {
	Text   string
	Target string
	Media  []string
}

type fakePlatform struct {
	mu sync.Mutex

	timeline    []content.Item
	timelineErr error
	mentions    []content.Item
	parents     map[string]content.Item
	parentErr   error
	sendErr     error
	uploadErr   error

	parentCalls []string
	posts       []sent
	replies     []sent
	quotes      []sent
	retweets    []string
	likes       []string
	uploads     []string
	nextID      int
}

func (p *fakePlatform) FetchTimeline(context.Context, int) ([]content.Item, error) {
	return p.timeline, p.timelineErr
}

func (p *fakePlatform) FetchMentions(context.Context, int) ([]content.Item, error) {
	return p.mentions, nil
}

func (p *fakePlatform) FetchParent(_ context.Context, id string) (content.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parentCalls = append(p.parentCalls, id)
	if p.parentErr != nil {
		return content.Item{}, p.parentErr
	}
	it, ok := p.parents[id]
	if !ok {
		return content.Item{}, fmt.Errorf("tweet %s: %w", id, twitter.ErrNotFound)
	}
	return it, nil
}

func (p *fakePlatform) sentItem(text string) content.Item {
	p.nextID++
	id := fmt.Sprintf("out-%d", p.nextID)
	return content.Item{
		ID:       content.ItemID(content.SourceTwitter, id),
		Source:   content.SourceTwitter,
		SourceID: id,
		Role:     content.RoleBot,
		Username: "gihun456",
		Text:     text,
	}
}

func (p *fakePlatform) Post(_ context.Context, text string, mediaIDs []string) (content.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return content.Item{}, p.sendErr
	}
	p.posts = append(p.posts, sent{Text: text, Media: mediaIDs})
	return p.sentItem(text), nil
}

func (p *fakePlatform) Reply(_ context.Context, text, target string) (content.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return content.Item{}, p.sendErr
	}
	p.replies = append(p.replies, sent{Text: text, Target: target})
	return p.sentItem(text), nil
}

func (p *fakePlatform) Quote(_ context.Context, text, target string) (content.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return content.Item{}, p.sendErr
	}
	p.quotes = append(p.quotes, sent{Text: text, Target: target})
	return p.sentItem(text), nil
}

func (p *fakePlatform) Retweet(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.retweets = append(p.retweets, target)
	return nil
}

func (p *fakePlatform) Like(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.likes = append(p.likes, target)
	return nil
}

func (p *fakePlatform) UploadMedia(_ context.Context, _ []byte, mimeType string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploadErr != nil {
		return "", p.uploadErr
	}
	p.uploads = append(p.uploads, mimeType)
	return "media-1", nil
}

type fakeStore struct {
	mu      sync.Mutex
	created []content.Item
	seen    map[string]bool
	failAll bool
}

func (s *fakeStore) CreateMessage(_ context.Context, it content.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("database is locked")
	}
	s.created = append(s.created, it)
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	s.seen[it.SourceID] = true
	return nil
}

func (s *fakeStore) HasMessage(_ context.Context, _ content.Source, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[id], nil
}

// recordingEngine answers every question with the verdict set for its action.
type recordingEngine struct {
	mu       sync.Mutex
	verdicts map[attention.Action]attention.Verdict
	asked    []attention.Question
}

func (e *recordingEngine) Decide(_ context.Context, q attention.Question) (attention.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.asked = append(e.asked, q)
	return e.verdicts[q.Action], nil
}

func (e *recordingEngine) count(a attention.Action) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, q := range e.asked {
		if q.Action == a {
			n++
		}
	}
	return n
}

type snippetRetriever struct {
	snippets []knowledge.Snippet
}

func (r snippetRetriever) RetrieveSimilar(_ context.Context, _ string, _ int) ([]knowledge.Snippet, error) {
	return r.snippets, nil
}

type fakeImages struct {
	err     error
	prompts []string
}

func (f *fakeImages) Generate(_ context.Context, prompt string) (media.Image, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return media.Image{}, f.err
	}
	return media.Image{Data: []byte{1, 2, 3}, MIME: "image/png"}, nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	slept  []time.Duration
	cancel func(slept []time.Duration) bool
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) bool {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	stop := r.cancel != nil && r.cancel(r.slept)
	r.mu.Unlock()
	if stop {
		return false
	}
	return ctx.Err() == nil
}
