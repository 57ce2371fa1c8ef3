// Package memory turns files and inline text into searchable vector stores.
//
// Invariants:
// - A source whose content hash is unchanged is never embedded twice by one Indexer.
// - Every stored chunk carries its source reference, 1-based chunk index and text.
// - Embeddings are cached per (content hash, embedder) when a CachedEmbedder is used.
//
// Usage:
//
//	splitter, _ := memory.NewTextSplitter(1000, 100)
//	indexer, _ := memory.NewIndexer(store, splitter, "notes.vec", logger)
//	stats, _ := indexer.Index(ctx, "docs/")
//	_ = stats
package memory
