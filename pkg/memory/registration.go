package memory

import (
	"fmt"

	"github.com/harun/toolflow/pkg/plugin"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/rs/zerolog"
)

// ModuleName is the module recipes use to reference memory tools.
const ModuleName = "memory"

// Register adds the SemanticSearch constructors to registry. The first loads a saved store
// from "path"; the second starts from an empty store using the named (or default) embedder.
func Register(registry *plugin.Registry, embedders *vectorstore.EmbedderRegistry, logger zerolog.Logger) error {
	fromPath := plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.Arg("path"),
			plugin.OptionalArg("max_results", DefaultMaxResults),
			plugin.OptionalArg("name", "SemanticSearch"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			path, err := plugin.StringArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("path: %w", err)
			}
			opts, err := searchOptions(args[1], args[2], args[3], logger)
			if err != nil {
				return nil, err
			}
			return NewSemanticSearchFromPath(path, embedders, opts...)
		},
	}

	fromEmbedder := plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.OptionalArg("embedder", ""),
			plugin.OptionalArg("chunk_size", DefaultChunkSize),
			plugin.OptionalArg("chunk_overlap", DefaultChunkOverlap),
			plugin.OptionalArg("max_results", DefaultMaxResults),
			plugin.OptionalArg("name", defaultSearchName),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			name, err := plugin.StringArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("embedder: %w", err)
			}
			size, err := plugin.IntArg(args[1])
			if err != nil {
				return nil, fmt.Errorf("chunk_size: %w", err)
			}
			overlap, err := plugin.IntArg(args[2])
			if err != nil {
				return nil, fmt.Errorf("chunk_overlap: %w", err)
			}
			opts, err := searchOptions(args[3], args[4], args[5], logger)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithChunking(size, overlap))

			factory := func() (*vectorstore.Store, error) {
				var embedder vectorstore.Embedder
				var err error
				if name == "" {
					embedder, err = embedders.Default()
				} else {
					embedder, err = embedders.Resolve(name)
				}
				if err != nil {
					return nil, err
				}
				return vectorstore.New(embedder, vectorstore.WithLogger(logger)), nil
			}
			return NewSemanticSearchFromFactory(factory, opts...)
		},
	}

	return registry.RegisterConstructor(ModuleName, "SemanticSearch", fromPath, fromEmbedder)
}

func searchOptions(maxResults, name, description interface{}, logger zerolog.Logger) ([]SearchOption, error) {
	n, err := plugin.IntArg(maxResults)
	if err != nil {
		return nil, fmt.Errorf("max_results: %w", err)
	}
	toolName, err := plugin.StringArg(name)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	desc, err := plugin.StringArg(description)
	if err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	return []SearchOption{
		WithMaxResults(n),
		WithToolName(toolName),
		WithToolDescription(desc),
		WithSearchLogger(logger),
	}, nil
}
