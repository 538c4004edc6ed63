package thread

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/pkg/api/twitter"
)

// chain is a fake fetcher over items "0".."n-1" where item i replies to i-1.
type chain struct {
	n      int
	failAt string
	err    error
	calls  []string
}

func (c *chain) item(i int) content.Item {
	it := content.Item{SourceID: strconv.Itoa(i), Text: fmt.Sprintf("msg %d", i)}
	if i > 0 {
		it.ParentID = strconv.Itoa(i - 1)
	}
	return it
}

func (c *chain) FetchParent(_ context.Context, id string) (content.Item, error) {
	c.calls = append(c.calls, id)
	if id == c.failAt {
		return content.Item{}, c.err
	}
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= c.n {
		return content.Item{}, twitter.ErrNotFound
	}
	return c.item(i), nil
}

func ids(th content.Thread) []string {
	out := make([]string, 0, th.Len())
	for _, it := range th.Items {
		out = append(out, it.SourceID)
	}
	return out
}

func TestBuild_SingleItemWithoutParent(t *testing.T) {
	t.Parallel()

	f := &chain{n: 1}
	b := NewBuilder(f, zaptest.NewLogger(t))
	th := b.Build(context.Background(), f.item(0))

	assert.Equal(t, []string{"0"}, ids(th))
	assert.Empty(t, f.calls)
}

func TestBuild_ChronologicalWithinDepth(t *testing.T) {
	t.Parallel()

	for _, n := range []int{2, 5, 10} {
		f := &chain{n: n}
		th := NewBuilder(f, zaptest.NewLogger(t)).Build(context.Background(), f.item(n-1))

		want := make([]string, n)
		for i := range want {
			want[i] = strconv.Itoa(i)
		}
		if diff := cmp.Diff(want, ids(th)); diff != "" {
			t.Fatalf("n=%d thread mismatch (-want +got):\n%s", n, diff)
		}
		assert.Len(t, f.calls, n-1)
	}
}

func TestBuild_DepthCapKeepsMostRecent(t *testing.T) {
	t.Parallel()

	f := &chain{n: 25}
	th := NewBuilder(f, zaptest.NewLogger(t)).Build(context.Background(), f.item(24))

	want := []string{"15", "16", "17", "18", "19", "20", "21", "22", "23", "24"}
	if diff := cmp.Diff(want, ids(th)); diff != "" {
		t.Fatalf("thread mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, f.calls, MaxHistoryDepth-1)
}

func TestBuild_FetchFailureTruncates(t *testing.T) {
	t.Parallel()

	for _, err := range []error{twitter.ErrNotFound, errors.New("connection reset")} {
		// leaf 6 -> fetch "5" ok, fetch "4" fails at hop k=1: k+1 items.
		f := &chain{n: 7, failAt: "4", err: err}
		th := NewBuilder(f, zaptest.NewLogger(t)).Build(context.Background(), f.item(6))

		assert.Equal(t, []string{"5", "6"}, ids(th))
		assert.Equal(t, []string{"5", "4"}, f.calls, "no fetches after the failure")
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &chain{n: 5}
	th := NewBuilder(f, nil).Build(ctx, f.item(4))
	assert.Equal(t, []string{"4"}, ids(th))
	assert.Empty(t, f.calls)
}

// loop serves items from a fixed map, so parent links can point back.
type loop struct {
	items map[string]content.Item
	calls []string
}

func (l *loop) FetchParent(_ context.Context, id string) (content.Item, error) {
	l.calls = append(l.calls, id)
	it, ok := l.items[id]
	if !ok {
		return content.Item{}, twitter.ErrNotFound
	}
	return it, nil
}

func TestBuild_StopsOnReplyCycle(t *testing.T) {
	t.Parallel()

	a := content.Item{SourceID: "a", ParentID: "c"}
	b := content.Item{SourceID: "b", ParentID: "a"}
	c := content.Item{SourceID: "c", ParentID: "b"}
	l := &loop{items: map[string]content.Item{"a": a, "b": b, "c": c}}

	th := NewBuilder(l, zaptest.NewLogger(t)).Build(context.Background(), c)
	assert.Equal(t, []string{"a", "b", "c"}, ids(th))
	assert.Equal(t, []string{"b", "a"}, l.calls, "the walk ends before revisiting c")

	self := content.Item{SourceID: "s", ParentID: "s"}
	l = &loop{items: map[string]content.Item{"s": self}}
	th = NewBuilder(l, zaptest.NewLogger(t)).Build(context.Background(), self)
	assert.Equal(t, []string{"s"}, ids(th))
	assert.Empty(t, l.calls)
}

func TestWithMaxDepth(t *testing.T) {
	t.Parallel()

	f := &chain{n: 5}
	th := NewBuilder(f, nil).WithMaxDepth(2).Build(context.Background(), f.item(4))
	assert.Equal(t, []string{"3", "4"}, ids(th))
}
