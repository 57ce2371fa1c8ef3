package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAndSearch(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "docs/lang.txt", "golang is a programming language")
	env.write(t, "docs/pets.txt", "the cat sleeps on the sofa")
	storePath := filepath.Join(env.dir, "docs.vdb")

	out, _, err := env.run(t, "", "index", filepath.Join(env.dir, "docs"), "--out", storePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 sources")

	_, err = os.Stat(storePath)
	require.NoError(t, err)

	// embeddings were cached
	_, err = os.Stat(filepath.Join(env.dir, "embeddings.db"))
	require.NoError(t, err)

	out, _, err = env.run(t, "", "search", storePath, "where is the cat", "-k", "1", "--json")
	require.NoError(t, err)

	var hits []searchHit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "pets.txt", filepath.Base(hits[0].Reference))
	assert.Equal(t, "the cat sleeps on the sofa", hits[0].Content)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	out, _, err = env.run(t, "", "search", storePath, "golang")
	require.NoError(t, err)
	assert.Contains(t, out, "1. [")
	assert.Contains(t, out, "lang.txt")

	t.Run("append keeps existing records", func(t *testing.T) {
		out, _, err := env.run(t, "", "index", "sqlite stores rows", "--out", storePath, "--append")
		require.NoError(t, err)
		assert.Contains(t, out, "(3 records)")
	})

	t.Run("semantic search from a recipe", func(t *testing.T) {
		recipe := env.write(t, "search.yaml", "module: memory\nclassname: SemanticSearch\nparameters:\n  path: "+storePath+"\n  max_results: 1\n")

		out, _, err := env.run(t, "", "run", recipe, "--set", "query=sqlite")
		require.NoError(t, err)
		assert.Contains(t, out, "sqlite stores rows")
	})
}

func TestIndexRequiresOut(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "", "index", "some text")
	assert.Error(t, err)
}

func TestSearchMissingStore(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "", "search", filepath.Join(env.dir, "missing.vdb"), "q")
	assert.Error(t, err)
}

func TestWatchTargets(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))

	trees, files := watchTargets([]string{file, sub, dir, sub, "inline text"})

	assert.Equal(t, []string{sub, dir}, trees)
	assert.Equal(t, []string{file}, files)
}
