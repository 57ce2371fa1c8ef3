package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexer_Index(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("alpha beta gamma"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("delta epsilon"), 0644))

	out := filepath.Join(t.TempDir(), "store.vdb")
	store := vectorstore.New(newWordEmbedder(16))
	ix, err := NewIndexer(store, nil, out, zerolog.Nop())
	require.NoError(t, err)
	assert.Same(t, store, ix.Store())

	ctx := context.Background()
	stats, err := ix.Index(ctx, dir, "inline note")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Sources)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 3, stats.Records)

	exists, err := FileExists(out)
	require.NoError(t, err)
	assert.True(t, exists)

	// unchanged sources are skipped
	stats, err = ix.Index(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Chunks)
	assert.Equal(t, 3, stats.Records)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("delta epsilon zeta"), 0644))
	stats, err = ix.Index(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, 4, stats.Records)

	embedders := vectorstore.NewEmbedderRegistry()
	embedders.Register("words", func() (vectorstore.Embedder, error) { return newWordEmbedder(16), nil })
	loaded, err := vectorstore.Load(out, embedders)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Len())
}

func TestIndexer_Errors(t *testing.T) {
	_, err := NewIndexer(nil, nil, "", zerolog.Nop())
	assert.Error(t, err)

	embedder := newWordEmbedder(8)
	embedder.fail = "broken"
	ix, err := NewIndexer(vectorstore.New(embedder), nil, "", zerolog.Nop())
	require.NoError(t, err)

	_, err = ix.Index(context.Background(), "broken")
	assert.Error(t, err)
	assert.Zero(t, ix.Store().Len())

	// a failed source is retried on the next run
	embedder.fail = ""
	stats, err := ix.Index(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Chunks)
}
