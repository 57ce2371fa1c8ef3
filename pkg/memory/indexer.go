package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/rs/zerolog"
)

// ErrIndexBusy is returned when an index run is already in progress.
var ErrIndexBusy = errors.New("indexing already in progress")

// IndexStats summarizes one index run.
type IndexStats struct {
	Sources  int           `json:"sources"`
	Skipped  int           `json:"skipped"`
	Chunks   int           `json:"chunks"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
}

// Indexer splits sources into chunks and adds them to a store, optionally saving it after
// each run. Sources whose content is unchanged since the last run are skipped.
type Indexer struct {
	store    *vectorstore.Store
	splitter *TextSplitter
	outPath  string
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	hashes  map[string]string
}

// NewIndexer creates an indexer. outPath may be empty to keep the store in memory only.
func NewIndexer(store *vectorstore.Store, splitter *TextSplitter, outPath string, logger zerolog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if splitter == nil {
		splitter, _ = NewTextSplitter(DefaultChunkSize, DefaultChunkOverlap)
	}
	return &Indexer{
		store:    store,
		splitter: splitter,
		outPath:  outPath,
		logger:   logger.With().Str("component", "indexer").Logger(),
		hashes:   make(map[string]string),
	}, nil
}

// Store returns the store being indexed into.
func (ix *Indexer) Store() *vectorstore.Store {
	return ix.store
}

// Index ingests every source: files, directories or inline text.
func (ix *Indexer) Index(ctx context.Context, sources ...string) (IndexStats, error) {
	ix.mu.Lock()
	if ix.running {
		ix.mu.Unlock()
		return IndexStats{}, ErrIndexBusy
	}
	ix.running = true
	ix.mu.Unlock()

	defer func() {
		ix.mu.Lock()
		ix.running = false
		ix.mu.Unlock()
	}()

	start := time.Now()
	var stats IndexStats
	var pending []vectorstore.TextObject

	for _, source := range sources {
		objs, err := ExtractTextObjects(source)
		if err != nil {
			return stats, err
		}
		for _, obj := range objs {
			stats.Sources++
			if ix.unchanged(obj) {
				stats.Skipped++
				continue
			}
			pending = append(pending, obj)
		}
	}

	chunks := ix.splitter.SplitAll(pending)
	stats.Chunks = len(chunks)

	if len(chunks) > 0 {
		if err := ix.store.AddTexts(ctx, chunks, true); err != nil {
			return stats, fmt.Errorf("failed to add chunks: %w", err)
		}
	}
	ix.remember(pending)

	if ix.outPath != "" && len(chunks) > 0 {
		if err := ix.store.Save(ix.outPath); err != nil {
			return stats, err
		}
	}

	stats.Records = ix.store.Len()
	stats.Duration = time.Since(start)

	ix.logger.Info().
		Int("sources", stats.Sources).
		Int("skipped", stats.Skipped).
		Int("chunks", stats.Chunks).
		Int("records", stats.Records).
		Dur("duration", stats.Duration).
		Msg("Index completed")

	return stats, nil
}

func (ix *Indexer) unchanged(obj vectorstore.TextObject) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.hashes[obj.Name] == contentHash(obj.Text)
}

func (ix *Indexer) remember(objs []vectorstore.TextObject) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, obj := range objs {
		ix.hashes[obj.Name] = contentHash(obj.Text)
	}
}

func contentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
