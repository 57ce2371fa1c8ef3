package coretools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/toolflow/pkg/llm"
	"github.com/harun/toolflow/pkg/memory"
	"github.com/harun/toolflow/pkg/orchestrator"
	"github.com/harun/toolflow/pkg/plugin"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/rs/zerolog"
)

// ModuleName is the module recipes use to reference the built-in tools.
const ModuleName = "coretools"

// Options configures core tool registration.
type Options struct {
	// Model backs QueryTool and DataExtractorTool; recipes using them fail to build without it.
	Model     llm.LanguageModel
	Embedders *vectorstore.EmbedderRegistry
	// Workers bounds MapReduce fan-out when a recipe does not set "workers"
	Workers   int
	Logger    zerolog.Logger
}

// RegisterCoreTools registers constructors for the leaf tools, the composites and the
// memory tools so that recipes can reference them.
func RegisterCoreTools(registry *plugin.Registry, opts Options) error {
	if registry == nil {
		return errors.New("plugin registry is required")
	}

	types := []struct {
		class string
		ctors []plugin.Constructor
	}{
		{"PromptTool", []plugin.Constructor{promptConstructor()}},
		{"QueryTool", []plugin.Constructor{queryConstructor(opts)}},
		{"HttpGetTool", []plugin.Constructor{httpGetConstructor()}},
		{"ProcessExecutor", []plugin.Constructor{processConstructor()}},
		{"DataExtractorTool", []plugin.Constructor{extractorConstructor(opts)}},
		{"CombineTool", []plugin.Constructor{combineConstructor()}},
		{"Pipeline", []plugin.Constructor{pipelineConstructor()}},
		{"MapReduce", []plugin.Constructor{mapReduceConstructor(opts.Workers)}},
	}

	for _, t := range types {
		if err := registry.RegisterConstructor(ModuleName, t.class, t.ctors...); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", t.class, err)
		}
	}

	embedders := opts.Embedders
	if embedders == nil {
		embedders = vectorstore.NewEmbedderRegistry()
	}
	return memory.Register(registry, embedders, opts.Logger)
}

func promptConstructor() plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.Arg("template"),
			plugin.OptionalArg("name", "Prompt"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			template, err := plugin.StringArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("template: %w", err)
			}
			name, description, err := naming(args[1], args[2])
			if err != nil {
				return nil, err
			}
			return NewPromptTool(template).WithName(name).WithDescription(description), nil
		},
	}
}

func queryConstructor(opts Options) plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.Arg("template"),
			plugin.OptionalArg("system", ""),
			plugin.OptionalArg("temperature", 0.0),
			plugin.OptionalArg("name", "Query"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			if opts.Model == nil {
				return nil, errors.New("no language model configured")
			}
			template, err := plugin.StringArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("template: %w", err)
			}
			system, err := plugin.StringArg(args[1])
			if err != nil {
				return nil, fmt.Errorf("system: %w", err)
			}
			temperature, err := plugin.FloatArg(args[2])
			if err != nil {
				return nil, fmt.Errorf("temperature: %w", err)
			}
			name, description, err := naming(args[3], args[4])
			if err != nil {
				return nil, err
			}
			return NewQueryTool(template, opts.Model).
				WithSystemPrompt(system).
				WithTemperature(temperature).
				WithName(name).
				WithDescription(description), nil
		},
	}
}

func httpGetConstructor() plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.OptionalArg("timeout", 30),
			plugin.OptionalArg("name", "HttpGet"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			timeout, err := secondsArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("timeout: %w", err)
			}
			name, description, err := naming(args[1], args[2])
			if err != nil {
				return nil, err
			}
			return NewHTTPGetTool(timeout).WithName(name).WithDescription(description), nil
		},
	}
}

func processConstructor() plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.Arg("path"),
			plugin.OptionalArg("working_directory", ""),
			plugin.OptionalArg("timeout", 0),
			plugin.OptionalArg("name", "ProcessExecutor"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			path, err := plugin.StringArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("path: %w", err)
			}
			dir, err := plugin.StringArg(args[1])
			if err != nil {
				return nil, fmt.Errorf("working_directory: %w", err)
			}
			timeout, err := secondsArg(args[2])
			if err != nil {
				return nil, fmt.Errorf("timeout: %w", err)
			}
			name, description, err := naming(args[3], args[4])
			if err != nil {
				return nil, err
			}
			p, err := NewProcessExecutor(path, dir)
			if err != nil {
				return nil, err
			}
			return p.WithTimeout(timeout).WithName(name).WithDescription(description), nil
		},
	}
}

func extractorConstructor(opts Options) plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.Arg("fields"),
			plugin.OptionalArg("temperature", 0.0),
			plugin.OptionalArg("name", "DataExtractor"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			if opts.Model == nil {
				return nil, errors.New("no language model configured")
			}
			fields, err := fieldsArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("fields: %w", err)
			}
			temperature, err := plugin.FloatArg(args[1])
			if err != nil {
				return nil, fmt.Errorf("temperature: %w", err)
			}
			name, description, err := naming(args[2], args[3])
			if err != nil {
				return nil, err
			}
			d, err := NewDataExtractorTool(opts.Model, fields)
			if err != nil {
				return nil, err
			}
			return d.WithTemperature(temperature).WithName(name).WithDescription(description), nil
		},
	}
}

func combineConstructor() plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.OptionalArg("separator", "\n"),
			plugin.OptionalArg("name", "Combine"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			sep, err := plugin.StringArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("separator: %w", err)
			}
			name, description, err := naming(args[1], args[2])
			if err != nil {
				return nil, err
			}
			return orchestrator.NewCombineTool().WithSeparator(sep).WithName(name).WithDescription(description), nil
		},
	}
}

func pipelineConstructor() plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.Arg("tools"),
			plugin.OptionalArg("name", "Pipeline"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			tools, err := plugin.ToolsArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("tools: %w", err)
			}
			name, description, err := naming(args[1], args[2])
			if err != nil {
				return nil, err
			}
			p, err := orchestrator.NewPipeline(tools...)
			if err != nil {
				return nil, err
			}
			return p.WithName(name).WithDescription(description), nil
		},
	}
}

func mapReduceConstructor(defaultWorkers int) plugin.Constructor {
	return plugin.Constructor{
		Args: []plugin.ArgSpec{
			plugin.Arg("mapper"),
			plugin.OptionalArg("reducer", nil),
			plugin.OptionalArg("workers", 0),
			plugin.OptionalArg("name", "MapReduce"),
			plugin.OptionalArg("description", ""),
		},
		New: func(args []interface{}) (toolexecutor.Tool, error) {
			mapper, err := plugin.ToolArg(args[0])
			if err != nil {
				return nil, fmt.Errorf("mapper: %w", err)
			}
			var reducer toolexecutor.Tool
			if args[1] != nil {
				if reducer, err = plugin.ToolArg(args[1]); err != nil {
					return nil, fmt.Errorf("reducer: %w", err)
				}
			}
			workers, err := plugin.IntArg(args[2])
			if err != nil {
				return nil, fmt.Errorf("workers: %w", err)
			}
			if workers == 0 {
				workers = defaultWorkers
			}
			name, description, err := naming(args[3], args[4])
			if err != nil {
				return nil, err
			}
			m, err := orchestrator.NewMapReduce(mapper, reducer)
			if err != nil {
				return nil, err
			}
			return m.WithWorkers(workers).WithName(name).WithDescription(description), nil
		},
	}
}

func naming(name, description interface{}) (string, string, error) {
	n, err := plugin.StringArg(name)
	if err != nil {
		return "", "", fmt.Errorf("name: %w", err)
	}
	d, err := plugin.StringArg(description)
	if err != nil {
		return "", "", fmt.Errorf("description: %w", err)
	}
	return n, d, nil
}

func secondsArg(value interface{}) (time.Duration, error) {
	seconds, err := plugin.FloatArg(value)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// fieldsArg accepts a JSON object of name to description, or a list of field names.
func fieldsArg(value interface{}) ([]Field, error) {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "{") {
			var m map[string]string
			if err := json.Unmarshal([]byte(s), &m); err != nil {
				return nil, err
			}
			return FieldsFromMap(m), nil
		}
	}

	names, err := plugin.StringsArg(value)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n}
	}
	return fields, nil
}
