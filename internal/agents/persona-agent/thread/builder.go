// Package thread reconstructs reply chains by walking parent pointers.
package thread

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/pkg/api/twitter"
)

// MaxHistoryDepth caps the number of items in a built thread.
const MaxHistoryDepth = 10

type ParentFetcher interface {
	FetchParent(ctx context.Context, id string) (content.Item, error)
}

type Builder struct {
	fetcher  ParentFetcher
	maxDepth int
	logger   *zap.Logger
}

func NewBuilder(fetcher ParentFetcher, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{fetcher: fetcher, maxDepth: MaxHistoryDepth, logger: logger.Named("thread")}
}

// WithMaxDepth returns a copy capped at depth items (minimum 1).
func (b *Builder) WithMaxDepth(depth int) *Builder {
	if depth < 1 {
		depth = 1
	}
	nb := *b
	nb.maxDepth = depth
	return &nb
}

// Build walks from leaf towards the root and returns the chain oldest first.
// Traversal stops at the root, at the depth cap, on a failed fetch, on a
// parent already in the chain or when ctx is done; what was collected so far
// is returned either way.
func (b *Builder) Build(ctx context.Context, leaf content.Item) content.Thread {
	items := make([]content.Item, 0, b.maxDepth)
	seen := make(map[string]struct{}, b.maxDepth)
	current := leaf
	for {
		items = append(items, current)
		seen[current.SourceID] = struct{}{}
		if !current.HasParent() || len(items) >= b.maxDepth {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if _, dup := seen[current.ParentID]; dup {
			b.logger.Warn("reply cycle, thread truncated",
				zap.String("leaf", leaf.SourceID),
				zap.String("parent", current.ParentID),
			)
			break
		}

		parent, err := b.fetcher.FetchParent(ctx, current.ParentID)
		if err != nil {
			fields := []zap.Field{
				zap.String("leaf", leaf.SourceID),
				zap.String("parent", current.ParentID),
				zap.Int("depth", len(items)),
				zap.Error(err),
			}
			if errors.Is(err, twitter.ErrNotFound) {
				b.logger.Debug("parent not found, thread truncated", fields...)
			} else {
				b.logger.Warn("fetch parent failed, thread truncated", fields...)
			}
			break
		}
		current = parent
	}

	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return content.Thread{Items: items}
}
