package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
)

// keywordEmbedder maps texts onto three topic axes.
type keywordEmbedder struct {
	calls atomic.Int32
	fail  bool
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		t = strings.ToLower(t)
		v := []float32{0.01, 0.01, 0.01}
		if strings.Contains(t, "game") {
			v[0] = 1
		}
		if strings.Contains(t, "money") {
			v[1] = 1
		}
		if strings.Contains(t, "mother") {
			v[2] = 1
		}
		out[i] = v
	}
	return out, nil
}

func openTestStore(t *testing.T, e *keywordEmbedder) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "knowledge.db"), e, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RetrieveSimilarRanksByCosine(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, &keywordEmbedder{})
	ctx := context.Background()
	require.NoError(t, s.AddDocuments(ctx, []Document{
		{ID: "a", SourceID: SourceDialogue, Content: "I need the money for my mother."},
		{ID: "b", SourceID: SourceDialogue, Content: "This game is not fair."},
		{ID: "c", SourceID: SourceDialogue, Content: "The money is in the piggy bank."},
		{ID: "d", SourceID: SourceDialogue, Content: "Nothing to see."},
	}))

	got, err := s.RetrieveSimilar(ctx, "how about the game?", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Greater(t, got[0].Score, got[1].Score)

	got, err = s.RetrieveSimilar(ctx, "money", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)

	none, err := s.RetrieveSimilar(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_AddDocumentsUpserts(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, &keywordEmbedder{})
	ctx := context.Background()
	require.NoError(t, s.AddDocuments(ctx, []Document{{ID: "a", SourceID: SourceDialogue, Content: "game"}}))
	require.NoError(t, s.AddDocuments(ctx, []Document{{ID: "a", SourceID: SourceDialogue, Content: "money"}}))

	n, err := s.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.RetrieveSimilar(ctx, "money", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "money", got[0].Text)
}

func TestStore_AddDocumentsBatches(t *testing.T) {
	t.Parallel()

	e := &keywordEmbedder{}
	s := openTestStore(t, e)
	docs := make([]Document, 70)
	for i := range docs {
		docs[i] = Document{ID: string(rune('A' + i)), SourceID: SourceDialogue, Content: "line"}
	}
	require.NoError(t, s.AddDocuments(context.Background(), docs))
	assert.EqualValues(t, 3, e.calls.Load())
}

func TestStore_RetrieveSimilarEmbedFailure(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, &keywordEmbedder{fail: true})
	_, err := s.RetrieveSimilar(context.Background(), "game", 4)
	assert.Error(t, err)
}

func TestStore_CreateMessageIdempotent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, &keywordEmbedder{})
	ctx := context.Background()
	it := content.Item{
		ID:          content.ItemID(content.SourceTwitter, "1"),
		Source:      content.SourceTwitter,
		SourceID:    "1",
		ChannelKind: content.ChannelText,
		ChannelID:   "1",
		AccountID:   "u",
		Role:        content.RoleUser,
		Text:        "hello",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateMessage(ctx, it))
	require.NoError(t, s.CreateMessage(ctx, it))
	require.NoError(t, s.CreateMessage(ctx, content.Item{Source: content.SourceTwitter, SourceID: "2", Text: "no id"}))

	n, err := s.MessageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := s.HasMessage(ctx, content.SourceTwitter, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasMessage(ctx, content.SourceTwitter, "3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVectorCodec(t *testing.T) {
	t.Parallel()

	in := []float32{1, -0.5, 3.25}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)

	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
}
