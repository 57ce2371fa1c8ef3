package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockEmbedder returns preset vectors for known texts and a hash-derived vector otherwise.
type mockEmbedder struct {
	name   string
	dim    int
	preset map[string][]float64
	fail   string

	mu    sync.Mutex
	calls int
}

func newMockEmbedder(dim int) *mockEmbedder {
	return &mockEmbedder{name: "mock", dim: dim, preset: map[string][]float64{}}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if text == m.fail {
		return nil, errors.New("embedding failed")
	}
	if v, ok := m.preset[text]; ok {
		return v, nil
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float64, m.dim)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float64(seed>>11)/float64(1<<53) - 0.5
	}
	return v, nil
}

func (m *mockEmbedder) VectorLength() int { return m.dim }
func (m *mockEmbedder) Name() string      { return m.name }

func TestStore_SearchRanksByCosine(t *testing.T) {
	store := New(newMockEmbedder(2))
	require.NoError(t, store.Add([]float64{1, 0}, map[string]string{"id": "a"}))
	require.NoError(t, store.Add([]float64{0, 1}, map[string]string{"id": "b"}))
	require.NoError(t, store.Add([]float64{0.9, 0.1}, map[string]string{"id": "c"}))

	matches, err := store.Search([]float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a", matches[0].Attributes["id"])
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "c", matches[1].Attributes["id"])
	assert.InDelta(t, 0.9/0.9055385138137417, matches[1].Score, 1e-9)
}

func TestStore_SearchClampsK(t *testing.T) {
	store := New(newMockEmbedder(2))
	require.NoError(t, store.Add([]float64{1, 0}, nil))
	require.NoError(t, store.Add([]float64{0, 1}, nil))

	matches, err := store.Search([]float64{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = store.Search([]float64{1, 1}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	empty := New(newMockEmbedder(2))
	matches, err = empty.Search([]float64{1, 1}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_SearchTiesKeepInsertionOrder(t *testing.T) {
	store := New(newMockEmbedder(2))
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Add([]float64{1, 1}, map[string]string{"id": fmt.Sprint(i)}))
	}

	matches, err := store.Search([]float64{1, 1}, 5)
	require.NoError(t, err)
	for i, m := range matches {
		assert.Equal(t, fmt.Sprint(i), m.Attributes["id"])
	}
}

func TestStore_RejectsWrongVectorLength(t *testing.T) {
	store := New(newMockEmbedder(3))
	assert.Error(t, store.Add([]float64{1, 2}, nil))

	_, err := store.Search([]float64{1}, 1)
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestStore_AddTexts(t *testing.T) {
	embedder := newMockEmbedder(8)
	store := New(embedder, WithParallelism(4))

	texts := []TextObject{
		{Name: "doc1", Class: "faq", Text: "first"},
		{Name: "empty", Class: "faq", Text: ""},
		{Name: "doc2", Class: "faq", Text: "second"},
	}
	require.NoError(t, store.AddTexts(context.Background(), texts, true))

	records := store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 2, embedder.calls)

	assert.Equal(t, map[string]string{"Name": "doc1", "Class": "faq", "Index": "1", "Text": "first"}, records[0].Attributes)
	assert.Equal(t, map[string]string{"Name": "doc2", "Class": "faq", "Index": "2", "Text": "second"}, records[1].Attributes)

	require.NoError(t, store.AddTexts(context.Background(), []TextObject{{Name: "doc3", Text: "third"}}, false))
	records = store.Records()
	require.Len(t, records, 3)
	_, hasText := records[2].Attributes[AttrText]
	assert.False(t, hasText)
}

func TestStore_AddTextsFailureAppendsNothing(t *testing.T) {
	embedder := newMockEmbedder(4)
	embedder.fail = "bad"
	store := New(embedder)

	err := store.AddTexts(context.Background(), []TextObject{{Name: "a", Text: "good"}, {Name: "b", Text: "bad"}}, true)
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestStore_SearchText(t *testing.T) {
	embedder := newMockEmbedder(2)
	embedder.preset["cats"] = []float64{1, 0}
	embedder.preset["dogs"] = []float64{0, 1}
	embedder.preset["kittens"] = []float64{0.95, 0.05}
	store := New(embedder)

	require.NoError(t, store.AddTexts(context.Background(), []TextObject{
		{Name: "c", Text: "cats"},
		{Name: "d", Text: "dogs"},
	}, true))

	matches, err := store.SearchText(context.Background(), TextObject{Text: "kittens"}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "cats", matches[0].Attributes[AttrText])
}

func TestStore_ConcurrentAddAndSearch(t *testing.T) {
	store := New(newMockEmbedder(4))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Add([]float64{float64(i), 1, 0, 0}, map[string]string{"i": fmt.Sprint(i)}))
		}(i)
		go func() {
			defer wg.Done()
			_, err := store.Search([]float64{1, 0, 0, 0}, 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, store.Len())
}

func TestStore_ParallelScoringMatchesSequential(t *testing.T) {
	embedder := newMockEmbedder(4)
	parallel := New(embedder, WithParallelism(4))
	sequential := New(embedder, WithParallelism(1))

	texts := make([]TextObject, parallelSearchThreshold+10)
	for i := range texts {
		texts[i] = TextObject{Name: fmt.Sprint(i), Text: fmt.Sprintf("text %d", i)}
	}
	require.NoError(t, parallel.AddTexts(context.Background(), texts, false))
	require.NoError(t, sequential.AddTexts(context.Background(), texts, false))

	query := []float64{0.1, -0.2, 0.3, 0.4}
	a, err := parallel.Search(query, 5)
	require.NoError(t, err)
	b, err := sequential.Search(query, 5)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{2, 0}, []float64{5, 0}), 1e-12)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-12)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 0}))
	assert.InDelta(t, 1.0, CosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-12)
}
