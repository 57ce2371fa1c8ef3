package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harun/toolflow/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Attribute keys written by text ingestion.
const (
	AttrName  = "Name"
	AttrClass = "Class"
	AttrIndex = "Index"
	AttrText  = "Text"
)

// parallelSearchThreshold is the record count above which search scores in parallel.
const parallelSearchThreshold = 4096

// Record is one stored vector and its attributes. Records are never modified once added.
type Record struct {
	Vector     []float64
	Attributes map[string]string
}

// Match is a search hit.
type Match struct {
	Score      float64
	Attributes map[string]string
}

// TextObject is a named piece of text to embed.
type TextObject struct {
	Name  string
	Class string
	Text  string
}

// Store is an append-only arena of records with nearest-neighbour search.
// Appends take a short exclusive section; reads work on a published snapshot without locking.
type Store struct {
	embedder Embedder
	logger   zerolog.Logger
	workers  int

	mu       sync.Mutex
	records  []Record
	snapshot atomic.Pointer[[]Record]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithParallelism bounds concurrent embedding and search workers.
func WithParallelism(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates an empty store that embeds text with embedder.
func New(embedder Embedder, opts ...Option) *Store {
	s := &Store{
		embedder: embedder,
		logger:   log.Logger,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := []Record{}
	s.snapshot.Store(&empty)
	return s
}

// Embedder returns the store's embedding function.
func (s *Store) Embedder() Embedder {
	return s.embedder
}

// VectorLength is the dimension every record in the store has.
func (s *Store) VectorLength() int {
	if s.embedder == nil {
		return 0
	}
	return s.embedder.VectorLength()
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.view())
}

// Records returns a read-only snapshot of the records.
func (s *Store) Records() []Record {
	return s.view()
}

func (s *Store) view() []Record {
	return *s.snapshot.Load()
}

// Add appends one record.
func (s *Store) Add(vector []float64, attributes map[string]string) error {
	if err := s.checkLength(vector); err != nil {
		return err
	}
	s.append(Record{Vector: vector, Attributes: attributes})
	return nil
}

func (s *Store) checkLength(vector []float64) error {
	if want := s.VectorLength(); want > 0 && len(vector) != want {
		return fmt.Errorf("vector length %d does not match store vector length %d", len(vector), want)
	}
	return nil
}

func (s *Store) append(records ...Record) {
	s.mu.Lock()
	s.records = append(s.records, records...)
	published := s.records[:len(s.records):len(s.records)]
	s.snapshot.Store(&published)
	s.mu.Unlock()

	observability.SetVectorStoreRecords(len(published))
}

// AddTexts embeds every non-empty text object and appends one record per object, in input
// order. Embedding runs concurrently. On error nothing is appended.
func (s *Store) AddTexts(ctx context.Context, texts []TextObject, keepText bool) error {
	if s.embedder == nil {
		return fmt.Errorf("store has no embedder")
	}

	start := time.Now()

	valid := make([]TextObject, 0, len(texts))
	for _, t := range texts {
		if t.Text != "" {
			valid = append(valid, t)
		}
	}

	records := make([]Record, len(valid))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, t := range valid {
		g.Go(func() error {
			vector, err := s.embedder.Embed(gctx, t.Text)
			if err != nil {
				return fmt.Errorf("failed to embed %q: %w", t.Name, err)
			}
			if err := s.checkLength(vector); err != nil {
				return err
			}
			records[i] = Record{Vector: vector, Attributes: textAttributes(t, keepText, i+1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.append(records...)
	observability.RecordVectorIngest(time.Since(start))

	s.logger.Debug().
		Int("added", len(records)).
		Int("skipped", len(texts)-len(valid)).
		Int("total", s.Len()).
		Msg("Text objects added to vector store")

	return nil
}

func textAttributes(t TextObject, keepText bool, index int) map[string]string {
	attrs := map[string]string{
		AttrName:  t.Name,
		AttrClass: t.Class,
		AttrIndex: strconv.Itoa(index),
	}
	if keepText {
		attrs[AttrText] = t.Text
	}
	return attrs
}

// Search returns the k records most similar to vector, best first. Score is
// 1 - cosine distance. Ties keep insertion order and k is clamped to the record count.
func (s *Store) Search(vector []float64, k int) ([]Match, error) {
	if err := s.checkLength(vector); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { observability.RecordVectorSearch(time.Since(start)) }()

	records := s.view()
	if k > len(records) {
		k = len(records)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	scores := s.score(records, vector)

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	matches := make([]Match, k)
	for i := 0; i < k; i++ {
		idx := order[i]
		matches[i] = Match{Score: scores[idx], Attributes: records[idx].Attributes}
	}
	return matches, nil
}

func (s *Store) score(records []Record, vector []float64) []float64 {
	scores := make([]float64, len(records))

	if len(records) < parallelSearchThreshold || s.workers < 2 {
		for i := range records {
			scores[i] = CosineSimilarity(records[i].Vector, vector)
		}
		return scores
	}

	chunk := (len(records) + s.workers - 1) / s.workers
	var g errgroup.Group
	g.SetLimit(s.workers)
	for lo := 0; lo < len(records); lo += chunk {
		hi := min(lo+chunk, len(records))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				scores[i] = CosineSimilarity(records[i].Vector, vector)
			}
			return nil
		})
	}
	_ = g.Wait()

	return scores
}

// SearchText embeds the text object and searches for it.
func (s *Store) SearchText(ctx context.Context, text TextObject, k int) ([]Match, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("store has no embedder")
	}

	vector, err := s.embedder.Embed(ctx, text.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.Search(vector, k)
}
