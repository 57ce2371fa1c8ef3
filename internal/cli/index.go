package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/harun/toolflow/pkg/hooks"
	"github.com/harun/toolflow/pkg/llm"
	"github.com/harun/toolflow/pkg/memory"
	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/spf13/cobra"
)

var (
	indexOut      string
	indexEmbedder string
	indexAppend   bool
	indexWatch    bool
)

var indexCmd = &cobra.Command{
	Use:   "index <source>...",
	Short: "Embed files into a vector store",
	Long: `Split files, directories or inline text into chunks, embed them and save the
resulting vector store. The store can be searched with "toolflow search" or from
recipes through memory:SemanticSearch.

With --watch the sources are re-indexed whenever files under them change; only
files whose content changed are embedded again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexOut, "out", "o", "", "path of the vector store to write (required)")
	indexCmd.Flags().StringVar(&indexEmbedder, "embedder", "", "embedder name, e.g. openai:text-embedding-3-small (default: configured embedding model)")
	indexCmd.Flags().BoolVar(&indexAppend, "append", false, "add to an existing store instead of replacing it")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep running and re-index on file changes")
	_ = indexCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := openIndexStore(a)
	if err != nil {
		return err
	}

	splitter, err := memory.NewTextSplitter(a.cfg.Search.ChunkSize, a.cfg.Search.ChunkOverlap)
	if err != nil {
		return err
	}
	indexer, err := memory.NewIndexer(store, splitter, indexOut, a.log.Component("indexer"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := indexer.Index(ctx, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d sources into %d chunks (%d records) in %s\n",
		stats.Sources, stats.Chunks, stats.Records, stats.Duration.Round(time.Millisecond))
	a.trigger(ctx, hooks.EventIndexDone, map[string]interface{}{
		"store":   indexOut,
		"sources": stats.Sources,
		"chunks":  stats.Chunks,
		"records": stats.Records,
	})
	if stats.Chunks == 0 && !indexWatch {
		// nothing new; still leave a valid store behind
		if err := store.Save(indexOut); err != nil {
			return err
		}
	}

	if !indexWatch {
		return nil
	}
	return watchSources(ctx, cmd, a, indexer, args)
}

func openIndexStore(a *app) (*vectorstore.Store, error) {
	opts := []vectorstore.Option{
		vectorstore.WithLogger(a.log.Component("vectorstore")),
		vectorstore.WithParallelism(a.cfg.Search.Parallelism),
	}

	if indexAppend {
		if _, err := os.Stat(indexOut); err == nil {
			return vectorstore.Load(indexOut, a.embedders, opts...)
		}
	}

	name := indexEmbedder
	if name == "" {
		name = llm.EmbedderName(a.cfg.OpenAI.EmbeddingModel)
	}
	embedder, err := a.embedders.Resolve(name)
	if err != nil {
		return nil, err
	}
	return vectorstore.New(embedder, opts...), nil
}

func watchSources(ctx context.Context, cmd *cobra.Command, a *app, indexer *memory.Indexer, sources []string) error {
	logger := a.log.Component("watch")

	out, _ := filepath.Abs(indexOut)
	ignore := memory.WithIgnore(func(path string) bool {
		abs, err := filepath.Abs(path)
		return err == nil && abs == out
	})

	watcher, err := memory.NewFileWatcher(logger, 0, func(changed []string) {
		logger.Debug().Strs("files", changed).Msg("Sources changed")
		stats, err := indexer.Index(ctx, sources...)
		switch {
		case errors.Is(err, memory.ErrIndexBusy):
			logger.Debug().Msg("Index run in progress, change will be picked up next time")
		case err != nil:
			logger.Error().Err(err).Msg("Re-index failed")
		case stats.Chunks > 0:
			fmt.Fprintf(cmd.OutOrStdout(), "Re-indexed %d changed sources (%d records)\n",
				stats.Sources-stats.Skipped, stats.Records)
			a.trigger(ctx, hooks.EventIndexDone, map[string]interface{}{
				"store":   indexOut,
				"sources": stats.Sources,
				"chunks":  stats.Chunks,
				"records": stats.Records,
			})
		}
	}, ignore)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Stop()

	trees, files := watchTargets(sources)
	for _, dir := range trees {
		if err := watcher.Watch(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	for _, file := range files {
		if err := watcher.WatchFile(file); err != nil {
			return fmt.Errorf("failed to watch %s: %w", file, err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

// watchTargets splits sources into directory trees and single files. Inline text sources
// are skipped.
func watchTargets(sources []string) (trees, files []string) {
	seen := make(map[string]bool)
	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil || seen[source] {
			continue
		}
		seen[source] = true
		if info.IsDir() {
			trees = append(trees, source)
		} else {
			files = append(files, source)
		}
	}
	return trees, files
}
