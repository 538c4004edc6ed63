package scheduler

import (
	"context"
	"strings"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/pkg/api/twitter"
)

// Platform is the social network as the scheduler sees it. Every call is
// fallible; FetchParent returns an error wrapping twitter.ErrNotFound when the
// parent is gone.
type Platform interface {
	FetchTimeline(ctx context.Context, limit int) ([]content.Item, error)
	FetchMentions(ctx context.Context, limit int) ([]content.Item, error)
	FetchParent(ctx context.Context, id string) (content.Item, error)
	Post(ctx context.Context, text string, mediaIDs []string) (content.Item, error)
	Reply(ctx context.Context, text, targetID string) (content.Item, error)
	Quote(ctx context.Context, text, targetID string) (content.Item, error)
	Retweet(ctx context.Context, targetID string) error
	Like(ctx context.Context, targetID string) error
	UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error)
}

// TwitterPlatform adapts the x.com web client.
type TwitterPlatform struct {
	client *twitter.Client
}

func NewTwitterPlatform(client *twitter.Client) *TwitterPlatform {
	return &TwitterPlatform{client: client}
}

func (p *TwitterPlatform) item(tw twitter.Tweet) content.Item {
	it := content.FromTweet(tw)
	if self := p.client.Username(); self != "" && strings.EqualFold(tw.Username, self) {
		it.Role = content.RoleBot
	}
	return it
}

func (p *TwitterPlatform) items(tweets []twitter.Tweet) []content.Item {
	out := make([]content.Item, 0, len(tweets))
	for _, tw := range tweets {
		out = append(out, p.item(tw))
	}
	return out
}

func (p *TwitterPlatform) FetchTimeline(ctx context.Context, limit int) ([]content.Item, error) {
	tweets, err := p.client.FetchHomeTimeline(ctx, limit)
	if err != nil {
		return nil, err
	}
	return p.items(tweets), nil
}

func (p *TwitterPlatform) FetchMentions(ctx context.Context, limit int) ([]content.Item, error) {
	tweets, err := p.client.SearchLatest(ctx, "@"+p.client.Username(), limit)
	if err != nil {
		return nil, err
	}
	return p.items(tweets), nil
}

func (p *TwitterPlatform) FetchParent(ctx context.Context, id string) (content.Item, error) {
	tw, err := p.client.GetTweet(ctx, id)
	if err != nil {
		return content.Item{}, err
	}
	return p.item(tw), nil
}

func (p *TwitterPlatform) send(ctx context.Context, text string, opts twitter.TweetOptions) (content.Item, error) {
	tw, err := p.client.SendTweet(ctx, text, opts)
	if err != nil {
		return content.Item{}, err
	}
	it := p.item(tw)
	it.Role = content.RoleBot
	return it, nil
}

func (p *TwitterPlatform) Post(ctx context.Context, text string, mediaIDs []string) (content.Item, error) {
	return p.send(ctx, text, twitter.TweetOptions{MediaIDs: mediaIDs})
}

func (p *TwitterPlatform) Reply(ctx context.Context, text, targetID string) (content.Item, error) {
	return p.send(ctx, text, twitter.TweetOptions{InReplyToID: targetID})
}

func (p *TwitterPlatform) Quote(ctx context.Context, text, targetID string) (content.Item, error) {
	return p.send(ctx, text, twitter.TweetOptions{QuoteURL: twitter.Tweet{ID: targetID}.PermanentURL()})
}

func (p *TwitterPlatform) Retweet(ctx context.Context, targetID string) error {
	return p.client.Retweet(ctx, targetID)
}

func (p *TwitterPlatform) Like(ctx context.Context, targetID string) error {
	return p.client.Like(ctx, targetID)
}

func (p *TwitterPlatform) UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error) {
	return p.client.UploadImage(ctx, data, mimeType)
}
