package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxResults is how many matches a search returns unless configured.
	DefaultMaxResults = 5
	// DatabaseKey is the context key the search tool records its store under.
	DatabaseKey = "database"

	defaultSearchName        = "SemanticSearchTool"
	defaultSearchDescription = "Performs a semantic search for a given query in its database and returns the relevant text chunks along with references."
)

// SearchResult is one ranked passage.
type SearchResult struct {
	Content   string `json:"content"`
	Reference string `json:"reference"`
}

// StoreFactory builds the store on first use.
type StoreFactory func() (*vectorstore.Store, error)

// SemanticSearch answers queries from a vector store. A non-empty context parameter is
// split, embedded and added to the store before the query runs.
type SemanticSearch struct {
	*toolexecutor.FunctionTool

	factory    StoreFactory
	maxResults int
	splitter   *TextSplitter
	logger     zerolog.Logger

	mu    sync.Mutex
	store *vectorstore.Store
}

// SearchOption configures a SemanticSearch.
type SearchOption func(*SemanticSearch) error

// WithMaxResults sets how many matches are returned.
func WithMaxResults(n int) SearchOption {
	return func(s *SemanticSearch) error {
		if n <= 0 {
			return fmt.Errorf("max results must be positive, got %d", n)
		}
		s.maxResults = n
		return nil
	}
}

// WithChunking sets the splitter used for context ingestion.
func WithChunking(chunkSize, overlap int) SearchOption {
	return func(s *SemanticSearch) error {
		splitter, err := NewTextSplitter(chunkSize, overlap)
		if err != nil {
			return err
		}
		s.splitter = splitter
		return nil
	}
}

// WithToolName renames the tool.
func WithToolName(name string) SearchOption {
	return func(s *SemanticSearch) error {
		s.FunctionTool.WithName(name)
		return nil
	}
}

// WithToolDescription replaces the description; empty values are ignored.
func WithToolDescription(description string) SearchOption {
	return func(s *SemanticSearch) error {
		s.FunctionTool.WithDescription(description)
		return nil
	}
}

// WithSearchLogger sets the logger.
func WithSearchLogger(logger zerolog.Logger) SearchOption {
	return func(s *SemanticSearch) error {
		s.logger = logger
		return nil
	}
}

// NewSemanticSearch creates a search tool over an existing store.
func NewSemanticSearch(store *vectorstore.Store, opts ...SearchOption) (*SemanticSearch, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	s, err := newSemanticSearch(nil, opts...)
	if err != nil {
		return nil, err
	}
	s.store = store
	return s, nil
}

// NewSemanticSearchFromFactory creates a search tool whose store is built on first use.
func NewSemanticSearchFromFactory(factory StoreFactory, opts ...SearchOption) (*SemanticSearch, error) {
	if factory == nil {
		return nil, fmt.Errorf("store factory is required")
	}
	return newSemanticSearch(factory, opts...)
}

// NewSemanticSearchFromPath creates a search tool named "SemanticSearch" that loads a saved
// store from path on first use.
func NewSemanticSearchFromPath(path string, embedders *vectorstore.EmbedderRegistry, opts ...SearchOption) (*SemanticSearch, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	var s *SemanticSearch
	factory := func() (*vectorstore.Store, error) {
		return vectorstore.Load(path, embedders, vectorstore.WithLogger(s.logger))
	}

	opts = append([]SearchOption{WithToolName("SemanticSearch")}, opts...)
	s, err := newSemanticSearch(factory, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newSemanticSearch(factory StoreFactory, opts ...SearchOption) (*SemanticSearch, error) {
	splitter, _ := NewTextSplitter(DefaultChunkSize, DefaultChunkOverlap)

	s := &SemanticSearch{
		factory:    factory,
		maxResults: DefaultMaxResults,
		splitter:   splitter,
		logger:     zerolog.Nop(),
	}
	s.FunctionTool = toolexecutor.NewFunctionTool(defaultSearchName, defaultSearchDescription, s)

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Parameters implements toolexecutor.Core.
func (s *SemanticSearch) Parameters() []toolexecutor.ParameterDescriptor {
	return []toolexecutor.ParameterDescriptor{
		{
			Name:        "query",
			Description: "Search query",
			Required:    true,
			Type:        toolexecutor.StringType,
		},
		{
			Name:        "context",
			Description: "Source text, file or directory to add to the database before searching",
			Type:        toolexecutor.StringType,
		},
	}
}

// Store returns the backing store, building it if needed.
func (s *SemanticSearch) Store() (*vectorstore.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return s.store, nil
	}

	store, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	s.store = store
	return store, nil
}

// Search ingests source when non-empty and returns the best matches for query.
func (s *SemanticSearch) Search(ctx context.Context, query, source string) ([]SearchResult, error) {
	store, err := s.Store()
	if err != nil {
		return nil, err
	}

	if source != "" {
		if err := s.ingest(ctx, store, source); err != nil {
			return nil, err
		}
	}

	matches, err := store.SearchText(ctx, vectorstore.TextObject{Name: "query", Text: query}, s.maxResults)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Content:   m.Attributes[vectorstore.AttrText],
			Reference: m.Attributes[vectorstore.AttrName],
		}
	}
	return results, nil
}

func (s *SemanticSearch) ingest(ctx context.Context, store *vectorstore.Store, source string) error {
	objs, err := ExtractTextObjects(source)
	if err != nil {
		return err
	}

	chunks := s.splitter.SplitAll(objs)
	if err := store.AddTexts(ctx, chunks, true); err != nil {
		return fmt.Errorf("failed to ingest context: %w", err)
	}

	s.logger.Debug().
		Int("sources", len(objs)).
		Int("chunks", len(chunks)).
		Int("records", store.Len()).
		Msg("Ingested search context")
	return nil
}

// ProducedKeys implements toolexecutor.KeyProducer.
func (s *SemanticSearch) ProducedKeys() []string {
	return []string{DatabaseKey}
}

// ExecuteCore implements toolexecutor.Core.
func (s *SemanticSearch) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	query := toolexecutor.ToJSONString(ec.Value("query"))
	source := toolexecutor.ToJSONString(ec.Value("context"))

	results, err := s.Search(ctx, query, source)

	if store := s.currentStore(); store != nil {
		ec.Set(DatabaseKey, store)
	}
	if err != nil {
		return toolexecutor.Result{}, err
	}
	return toolexecutor.Succeeded(results), nil
}

func (s *SemanticSearch) currentStore() *vectorstore.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}
