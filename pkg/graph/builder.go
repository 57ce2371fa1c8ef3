package graph

import (
	"errors"
	"fmt"

	"github.com/harun/toolflow/pkg/plugin"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

// ErrUnresolved is returned by BuildDocument when the recipe produced no tool.
var ErrUnresolved = errors.New("tool definition could not be resolved")

// Builder turns tool definitions into live tool graphs.
type Builder struct {
	registry *plugin.Registry
	logger   zerolog.Logger
}

// NewBuilder creates a builder resolving types and methods through registry.
func NewBuilder(registry *plugin.Registry, logger zerolog.Logger) *Builder {
	return &Builder{
		registry: registry,
		logger:   logger.With().Str("component", "graph").Logger(),
	}
}

// Build resolves def into a tool. Nested definitions are resolved depth-first. It reports
// false when no tool could be produced; the reason is logged at debug level.
func (b *Builder) Build(def *ToolDefinition) (toolexecutor.Tool, bool) {
	if def == nil {
		return nil, false
	}

	tool, err := b.build(def)
	if err != nil {
		b.logger.Debug().Err(err).Str("definition", def.String()).Msg("Failed to resolve tool definition")
		return nil, false
	}
	return tool, true
}

// BuildDocument parses a JSON or YAML recipe and builds it.
func (b *Builder) BuildDocument(doc []byte) (toolexecutor.Tool, error) {
	def, err := Parse(doc)
	if err != nil {
		return nil, err
	}

	tool, ok := b.Build(def)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, def)
	}
	return tool, nil
}

// BuildFile reads a recipe file and builds it.
func (b *Builder) BuildFile(path string) (toolexecutor.Tool, error) {
	def, err := ParseFile(path)
	if err != nil {
		return nil, err
	}

	tool, ok := b.Build(def)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, def)
	}
	return tool, nil
}

func (b *Builder) build(def *ToolDefinition) (toolexecutor.Tool, error) {
	if ctors := b.registry.Constructors(def.Module, def.ClassName); ctors != nil {
		return b.construct(def, ctors)
	}

	binding, err := b.registry.Method(def.Module, def.ClassName, def.Method)
	if err != nil {
		return nil, err
	}
	return NewMethodTool(binding), nil
}

func (b *Builder) construct(def *ToolDefinition, ctors []plugin.Constructor) (toolexecutor.Tool, error) {
	var lastErr error

	for i, ctor := range ctors {
		args, err := b.arguments(def, ctor.Args)
		if err != nil {
			lastErr = fmt.Errorf("constructor %d: %w", i, err)
			continue
		}

		tool, err := ctor.New(args)
		if err != nil {
			lastErr = fmt.Errorf("constructor %d: %w", i, err)
			continue
		}
		if tool == nil {
			lastErr = fmt.Errorf("constructor %d returned no tool", i)
			continue
		}
		return tool, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no constructors")
	}
	return nil, fmt.Errorf("%s: %w", def, lastErr)
}

func (b *Builder) arguments(def *ToolDefinition, specs []plugin.ArgSpec) ([]interface{}, error) {
	args := make([]interface{}, len(specs))

	for i, spec := range specs {
		value, ok := def.Parameters[spec.Name]
		if !ok {
			if !spec.HasDefault {
				return nil, fmt.Errorf("missing argument %s", spec.Name)
			}
			args[i] = spec.Default
			continue
		}

		resolved, err := b.resolve(value)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", spec.Name, err)
		}
		args[i] = resolved
	}

	return args, nil
}

func (b *Builder) resolve(value Value) (interface{}, error) {
	switch value.Kind {
	case KindToolRef:
		tool, ok := b.Build(value.Ref)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolved, value.Ref)
		}
		return tool, nil

	case KindToolRefList:
		tools := make([]toolexecutor.Tool, 0, len(value.Refs))
		mixed := make([]interface{}, 0, len(value.Refs))
		for _, ref := range value.Refs {
			if tool, ok := b.Build(ref); ok {
				tools = append(tools, tool)
				mixed = append(mixed, tool)
			} else {
				mixed = append(mixed, ref)
			}
		}
		if len(tools) == len(value.Refs) {
			return tools, nil
		}
		return mixed, nil
	}

	return value.Literal, nil
}
