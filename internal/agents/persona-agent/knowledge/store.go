// Package knowledge is the sqlite-backed document and message store the
// prompts draw their snippets from.
package knowledge

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/spyrux/persona-bot/internal/agents/persona-agent/content"
	"github.com/spyrux/persona-bot/pkg/x/llm"
)

const embedBatchSize = 32

type Document struct {
	ID       string
	SourceID string
	Content  string
}

// Snippet is a retrieved passage; Score is cosine similarity.
type Snippet struct {
	ID    string
	Text  string
	Score float64
}

type Store struct {
	db        *sql.DB
	embedder  llm.Embedder
	vectorExt bool
	logger    *zap.Logger
	now       func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	dims INTEGER NOT NULL,
	embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	source_id TEXT NOT NULL,
	channel_kind TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(source, source_id)
);
`

// Open opens (or creates) the store at path.
func Open(path string, embedder llm.Embedder, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		logger:   logger.Named("knowledge"),
		now:      time.Now,
	}
	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err == nil {
		s.vectorExt = true
		s.logger.Debug("sqlite-vec available", zap.String("version", version))
	} else {
		s.logger.Debug("sqlite-vec unavailable, using in-process cosine search")
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AddDocuments embeds docs in batches and upserts them by id.
func (s *Store) AddDocuments(ctx context.Context, docs []Document) error {
	for start := 0; start < len(docs); start += embedBatchSize {
		batch := docs[start:min(start+embedBatchSize, len(docs))]
		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}

		vecs, err := llm.Retry(ctx, llm.RetryOptions{Logger: s.logger, Op: "embed documents"},
			func(ctx context.Context) ([][]float32, error) { return s.embedder.Embed(ctx, texts) })
		if err != nil {
			return fmt.Errorf("embed documents %d-%d: %w", start, start+len(batch)-1, err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embed documents: got %d vectors for %d documents", len(vecs), len(batch))
		}

		if err := s.insertDocuments(ctx, batch, vecs); err != nil {
			return err
		}
		s.logger.Debug("stored documents", zap.Int("count", len(batch)))
	}
	return nil
}

func (s *Store) insertDocuments(ctx context.Context, batch []Document, vecs [][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, source_id, content, created_at, dims, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			content = excluded.content,
			dims = excluded.dims,
			embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now().UTC()
	for i, d := range batch {
		if _, err := stmt.ExecContext(ctx, d.ID, d.SourceID, d.Content, now, len(vecs[i]), encodeVector(vecs[i])); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// CreateMessage records an observed item. Re-recording the same
// (source, source id) is a no-op.
func (s *Store) CreateMessage(ctx context.Context, it content.Item) error {
	created := it.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	id := it.ID
	if id == uuid.Nil {
		id = content.ItemID(it.Source, it.SourceID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, source, source_id, channel_kind, channel_id, account_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, source_id) DO NOTHING`,
		id.String(), string(it.Source), it.SourceID, string(it.ChannelKind), it.ChannelID,
		it.AccountID, string(it.Role), it.Text, created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create message %s/%s: %w", it.Source, it.SourceID, err)
	}
	return nil
}

// HasMessage reports whether (source, sourceID) was already recorded.
func (s *Store) HasMessage(ctx context.Context, source content.Source, sourceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE source = ? AND source_id = ?", string(source), sourceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup message %s/%s: %w", source, sourceID, err)
	}
	return n > 0, nil
}

// MessageCount is used by the ingest command's summary.
func (s *Store) MessageCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

func (s *Store) DocumentCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

// RetrieveSimilar returns up to k documents closest to query, best first.
func (s *Store) RetrieveSimilar(ctx context.Context, query string, k int) ([]Snippet, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed query: no vector returned")
	}
	q := vecs[0]

	if s.vectorExt {
		return s.searchVec(ctx, q, k)
	}
	return s.searchScan(ctx, q, k)
}

func (s *Store) searchVec(ctx context.Context, q []float32, k int) ([]Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, vec_distance_cosine(embedding, ?) AS distance
		FROM documents
		WHERE dims = ?
		ORDER BY distance ASC
		LIMIT ?`, encodeVector(q), len(q), k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var out []Snippet
	for rows.Next() {
		var sn Snippet
		var distance float64
		if err := rows.Scan(&sn.ID, &sn.Text, &distance); err != nil {
			return nil, err
		}
		sn.Score = 1.0 - distance
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *Store) searchScan(ctx context.Context, q []float32, k int) ([]Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, embedding FROM documents WHERE dims = ?`, len(q))
	if err != nil {
		return nil, fmt.Errorf("document scan failed: %w", err)
	}
	defer rows.Close()

	var all []Snippet
	for rows.Next() {
		var sn Snippet
		var blob []byte
		if err := rows.Scan(&sn.ID, &sn.Text, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			s.logger.Warn("skipping document with corrupt embedding", zap.String("id", sn.ID), zap.Error(err))
			continue
		}
		sn.Score = cosineSimilarity(q, vec)
		all = append(all, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// encodeVector writes v little-endian, the layout sqlite-vec reads.
func encodeVector(v []float32) []byte {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil
	}
	return buf.Bytes()
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
