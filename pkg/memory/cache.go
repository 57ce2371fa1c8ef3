package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/harun/toolflow/internal/observability"
	"github.com/harun/toolflow/pkg/vectorstore"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// CachedEmbedder memoizes another embedder's vectors in SQLite, keyed by the SHA-256 of the
// text and the embedder name.
type CachedEmbedder struct {
	inner  vectorstore.Embedder
	db     *sql.DB
	logger zerolog.Logger
}

// NewCachedEmbedder opens (or creates) the cache database at path.
func NewCachedEmbedder(inner vectorstore.Embedder, path string, logger zerolog.Logger) (*CachedEmbedder, error) {
	if inner == nil {
		return nil, errors.New("embedder is required")
	}
	if path == "" {
		return nil, errors.New("cache path is required")
	}
	if err := EnsureDirectory(filepath.Dir(path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	c := &CachedEmbedder{
		inner:  inner,
		db:     db,
		logger: logger.With().Str("component", "embedding-cache").Logger(),
	}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *CachedEmbedder) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT NOT NULL,
			embedder TEXT NOT NULL,
			embedding BLOB NOT NULL,
			dimension INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (content_hash, embedder)
		);
		CREATE INDEX IF NOT EXISTS idx_cache_created ON embedding_cache(created_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Name returns the wrapped embedder's name, so stores built through the cache load without it.
func (c *CachedEmbedder) Name() string { return c.inner.Name() }

// VectorLength returns the wrapped embedder's vector length.
func (c *CachedEmbedder) VectorLength() int { return c.inner.VectorLength() }

// Embed returns the cached vector for text, embedding and storing it on a miss.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])

	var cached []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT embedding FROM embedding_cache WHERE content_hash = ? AND embedder = ?",
		contentHash, c.inner.Name(),
	).Scan(&cached)

	switch {
	case err == nil:
		var vector []float64
		if err := json.Unmarshal(cached, &vector); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached embedding: %w", err)
		}
		observability.RecordEmbeddingCache(true)
		return vector, nil
	case !errors.Is(err, sql.ErrNoRows):
		c.logger.Warn().Err(err).Msg("Embedding cache lookup failed")
	}

	observability.RecordEmbeddingCache(false)

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO embedding_cache (content_hash, embedder, embedding, dimension, created_at) VALUES (?, ?, ?, ?, ?)",
		contentHash, c.inner.Name(), data, len(vector), time.Now().Unix(),
	)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache embedding")
	}

	return vector, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM embedding_cache").Scan(&n)
	return n, err
}

// Close closes the cache database.
func (c *CachedEmbedder) Close() error {
	return c.db.Close()
}

var _ vectorstore.Embedder = (*CachedEmbedder)(nil)
