package toolexecutor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// ToolExecutor is a registry of named tools. It lets callers create tools once and run
// them later by name, with the execution context supplied as JSON text.
type ToolExecutor struct {
	tools   map[string]Tool
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
}

// New creates a new ToolExecutor
func New() *ToolExecutor {
	te := &ToolExecutor{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*gojsonschema.Schema),
	}

	log.Debug().Msg("Tool executor initialized")

	return te
}

// RegisterTool registers a tool under its name, replacing any previous tool of that name.
func (te *ToolExecutor) RegisterTool(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}

	descriptor := tool.Descriptor()
	if err := descriptor.Validate(); err != nil {
		return fmt.Errorf("invalid tool descriptor: %w", err)
	}

	schema, err := descriptor.CompileSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	te.mu.Lock()
	defer te.mu.Unlock()

	if _, exists := te.tools[tool.Name()]; exists {
		log.Warn().Str("tool", tool.Name()).Msg("Replacing registered tool")
	}

	te.tools[tool.Name()] = tool
	te.schemas[tool.Name()] = schema

	log.Info().Str("tool", tool.Name()).Msg("Tool registered")

	return nil
}

// UnregisterTool removes a tool
func (te *ToolExecutor) UnregisterTool(name string) {
	te.mu.Lock()
	defer te.mu.Unlock()

	delete(te.tools, name)
	delete(te.schemas, name)

	log.Info().Str("tool", name).Msg("Tool unregistered")
}

// GetTool returns a tool by name
func (te *ToolExecutor) GetTool(name string) (Tool, bool) {
	te.mu.RLock()
	defer te.mu.RUnlock()

	tool, ok := te.tools[name]
	return tool, ok
}

// ListTools returns all registered tool names, sorted.
func (te *ToolExecutor) ListTools() []string {
	te.mu.RLock()
	defer te.mu.RUnlock()

	tools := make([]string, 0, len(te.tools))
	for name := range te.tools {
		tools = append(tools, name)
	}
	sort.Strings(tools)

	return tools
}

// Descriptors returns the descriptors of all registered tools, sorted by name.
func (te *ToolExecutor) Descriptors() []FunctionDescriptor {
	names := te.ListTools()

	te.mu.RLock()
	defer te.mu.RUnlock()

	out := make([]FunctionDescriptor, 0, len(names))
	for _, name := range names {
		if tool, ok := te.tools[name]; ok {
			out = append(out, tool.Descriptor())
		}
	}
	return out
}

// GetToolCount returns the number of registered tools
func (te *ToolExecutor) GetToolCount() int {
	te.mu.RLock()
	defer te.mu.RUnlock()

	return len(te.tools)
}

// Execute runs the named tool with a context parsed from contextJSON and returns its text result.
func (te *ToolExecutor) Execute(ctx context.Context, toolName string, contextJSON string) string {
	tool, ok := te.GetTool(toolName)
	if !ok {
		log.Warn().Str("tool", toolName).Msg("Tool not found")
		return fmt.Sprintf("%s %s: %s", ErrorPrefix, ErrToolNotFound, toolName)
	}

	ec, err := ParseExecutionContext(contextJSON)
	if err != nil {
		log.Error().Err(err).Str("tool", toolName).Msg("Invalid execution context")
		return FailureMessage(toolName)
	}

	return tool.Execute(ctx, ec)
}

// Invoke runs the named tool for a function call: args are validated against the tool's
// schema, merged into ec, and the tool executed against ec.
func (te *ToolExecutor) Invoke(ctx context.Context, toolName string, args map[string]interface{}, ec *ExecutionContext) string {
	te.mu.RLock()
	tool, ok := te.tools[toolName]
	schema := te.schemas[toolName]
	te.mu.RUnlock()

	if !ok {
		log.Warn().Str("tool", toolName).Msg("Tool not found")
		return fmt.Sprintf("%s %s: %s", ErrorPrefix, ErrToolNotFound, toolName)
	}

	if err := validateArguments(schema, args); err != nil {
		log.Error().Err(err).Str("tool", toolName).Msg("Function call arguments rejected")
		return FailureMessage(toolName)
	}

	if ec == nil {
		ec = NewExecutionContext(nil)
	}
	for k, v := range args {
		ec.Set(k, v)
	}

	return tool.Execute(ctx, ec)
}
