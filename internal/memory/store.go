package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS threads (
	thread_id   TEXT PRIMARY KEY,
	user_key    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exchanges (
	exchange_id    TEXT PRIMARY KEY,
	thread_id      TEXT,
	channel        TEXT NOT NULL,
	role           TEXT NOT NULL,
	content        TEXT NOT NULL,
	emotional_tone TEXT NOT NULL DEFAULT 'neutral',
	triad_k        REAL NOT NULL DEFAULT 1.0,
	triad_f        REAL NOT NULL DEFAULT 1.0,
	triad_t        REAL NOT NULL DEFAULT 1.0,
	embedding      BLOB,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (thread_id) REFERENCES threads(thread_id)
);

CREATE INDEX IF NOT EXISTS idx_exchanges_thread
ON exchanges(thread_id, created_at);
`

// #endregion schema

// #region store-struct
// Store is the SQLite-backed two-channel memory store.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages
// (shell state, deviation log, provenance).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region threads

// CreateThread creates a new conversation thread for the given user key.
func (s *Store) CreateThread(ctx context.Context, userKey string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, user_key, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, userKey, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return id, nil
}

// TouchThread bumps a thread's updated_at timestamp.
func (s *Store) TouchThread(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET updated_at = ? WHERE thread_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), threadID,
	)
	if err != nil {
		return fmt.Errorf("touch thread %s: %w", threadID, err)
	}
	return nil
}

// UserThreads lists threads for a user key, most recently updated first.
func (s *Store) UserThreads(ctx context.Context, userKey string) ([]Thread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, user_key, created_at, updated_at
		 FROM threads WHERE user_key = ? ORDER BY updated_at DESC`, userKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var th Thread
		var created, updated string
		if err := rows.Scan(&th.ThreadID, &th.UserKey, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		th.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		th.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		threads = append(threads, th)
	}
	return threads, rows.Err()
}

// #endregion threads

// #region persist

// Persist stores one side of an exchange with its embedding. threadID may be
// empty for threadless interactions. Returns the new exchange ID.
func (s *Store) Persist(ctx context.Context, ex Exchange, channel string, embedding []float32, threadID string) (string, error) {
	id := uuid.New().String()
	tone := ex.EmotionalTone
	if tone == "" {
		tone = "neutral"
	}

	var threadPtr interface{}
	if threadID != "" {
		threadPtr = threadID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (exchange_id, thread_id, channel, role, content, emotional_tone, triad_k, triad_f, triad_t, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, threadPtr, channel, ex.Role, ex.Content, tone,
		ex.Triad.Kindness, ex.Triad.Freedom, ex.Triad.Truth,
		encodeEmbedding(embedding), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("persist exchange: %w", err)
	}
	return id, nil
}

// #endregion persist

// #region retrieve

// maxScanRows bounds how many recent exchanges are ranked per retrieval.
const maxScanRows = 512

// Retrieve returns the exchanges most similar to the query embedding,
// best-first, at most limit entries. Results are consistency-checked:
// empty content and duplicate content are dropped.
func (s *Store) Retrieve(ctx context.Context, query string, embedding []float32, limit int) ([]Exchange, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT exchange_id, COALESCE(thread_id, ''), channel, role, content, emotional_tone, triad_k, triad_f, triad_t, embedding, created_at
		 FROM exchanges WHERE embedding IS NOT NULL
		 ORDER BY created_at DESC LIMIT ?`, maxScanRows,
	)
	if err != nil {
		return nil, fmt.Errorf("retrieve query: %w", err)
	}
	defer rows.Close()

	var candidates []Exchange
	for rows.Next() {
		var ex Exchange
		var blob []byte
		var created string
		if err := rows.Scan(&ex.ExchangeID, &ex.ThreadID, &ex.Channel, &ex.Role,
			&ex.Content, &ex.EmotionalTone,
			&ex.Triad.Kindness, &ex.Triad.Freedom, &ex.Triad.Truth,
			&blob, &created); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		ex.Score = cosineSimilarity(embedding, decodeEmbedding(blob))
		candidates = append(candidates, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("retrieve rows: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return consistencyCheck(candidates, limit), nil
}

// consistencyCheck validates ranked results: non-empty content, no duplicate
// content, at most limit entries.
func consistencyCheck(ranked []Exchange, limit int) []Exchange {
	seen := make(map[string]bool)
	var valid []Exchange
	for _, ex := range ranked {
		if ex.Content == "" {
			continue
		}
		if seen[ex.Content] {
			continue
		}
		seen[ex.Content] = true
		valid = append(valid, ex)
		if len(valid) == limit {
			break
		}
	}
	return valid
}

// #endregion retrieve

// #region thread-messages

// ThreadMessages returns the exchanges of a thread in chronological order.
func (s *Store) ThreadMessages(ctx context.Context, threadID string, limit int) ([]Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exchange_id, COALESCE(thread_id, ''), channel, role, content, emotional_tone, triad_k, triad_f, triad_t, created_at
		 FROM exchanges WHERE thread_id = ? ORDER BY created_at ASC, rowid ASC LIMIT ?`,
		threadID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("thread messages: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var created string
		if err := rows.Scan(&ex.ExchangeID, &ex.ThreadID, &ex.Channel, &ex.Role,
			&ex.Content, &ex.EmotionalTone,
			&ex.Triad.Kindness, &ex.Triad.Freedom, &ex.Triad.Truth,
			&created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		ex.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// #endregion thread-messages

// #region statistics

// Statistics reports exchange counts per channel plus the thread count.
func (s *Store) Statistics(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)

	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, COUNT(*) FROM exchanges GROUP BY channel`,
	)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var channel string
		var count int
		if err := rows.Scan(&channel, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[channel+"_count"] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var threads int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&threads); err != nil {
		return nil, fmt.Errorf("thread count: %w", err)
	}
	stats["thread_count"] = threads

	return stats, nil
}

// #endregion statistics

// #region embedding-encoding
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// #endregion embedding-encoding

// #region cosine
// cosineSimilarity computes cosine similarity between two vectors.
// Returns 0 for zero-length or mismatched vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// #endregion cosine
