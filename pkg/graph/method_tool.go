package graph

import (
	"context"

	"github.com/harun/toolflow/pkg/plugin"
	"github.com/harun/toolflow/pkg/toolexecutor"
)

// MethodTool adapts a module method into a tool. Its parameters are the method's
// parameters, read from the execution context.
type MethodTool struct {
	*toolexecutor.FunctionTool
	binding plugin.MethodBinding
}

// NewMethodTool wraps a method binding.
func NewMethodTool(binding plugin.MethodBinding) *MethodTool {
	t := &MethodTool{binding: binding}
	t.FunctionTool = toolexecutor.NewFunctionTool(binding.Descriptor.Name, binding.Descriptor.Description, t)
	return t
}

// Parameters implements toolexecutor.Core.
func (t *MethodTool) Parameters() []toolexecutor.ParameterDescriptor {
	return t.binding.Descriptor.Parameters
}

// ExecuteCore implements toolexecutor.Core.
func (t *MethodTool) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	args := make(map[string]interface{}, len(t.binding.Descriptor.Parameters))
	for _, p := range t.binding.Descriptor.Parameters {
		if v := ec.Value(p.Name); v != nil {
			args[p.Name] = v
		}
	}

	out, err := t.binding.Invoke(ctx, args)
	if err != nil {
		return toolexecutor.Result{}, err
	}
	return toolexecutor.Succeeded(out), nil
}
