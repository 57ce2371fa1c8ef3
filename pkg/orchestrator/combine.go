package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/harun/toolflow/pkg/toolexecutor"
)

// CombineInput is the parameter CombineTool reads its items from.
const CombineInput = "items"

// CombineTool joins a list of values into text, one item per line.
type CombineTool struct {
	*toolexecutor.FunctionTool
	separator string
}

// NewCombineTool creates a combiner named "Combine".
func NewCombineTool() *CombineTool {
	c := &CombineTool{separator: "\n"}
	c.FunctionTool = toolexecutor.NewFunctionTool("Combine", "Combines a list of text items by joining them with a new line", c)
	return c
}

// WithSeparator changes the text placed between items.
func (c *CombineTool) WithSeparator(sep string) *CombineTool {
	c.separator = sep
	return c
}

// WithName renames the tool.
func (c *CombineTool) WithName(name string) *CombineTool {
	c.FunctionTool.WithName(name)
	return c
}

// WithDescription replaces the description.
func (c *CombineTool) WithDescription(description string) *CombineTool {
	c.FunctionTool.WithDescription(description)
	return c
}

// Parameters implements toolexecutor.Core.
func (c *CombineTool) Parameters() []toolexecutor.ParameterDescriptor {
	return []toolexecutor.ParameterDescriptor{{
		Name:        CombineInput,
		Description: "List of text items to combine",
		Required:    true,
		Type:        toolexecutor.ArrayOf(toolexecutor.StringType),
	}}
}

// ExecuteCore implements toolexecutor.Core.
func (c *CombineTool) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	items, ok := toolexecutor.ToSlice(ec.Value(CombineInput))
	if !ok {
		return toolexecutor.Result{}, fmt.Errorf("%s must be a list", CombineInput)
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = toolexecutor.ToJSONString(item)
	}
	return toolexecutor.Succeeded(strings.Join(parts, c.separator)), nil
}
