package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

// ErrNoTools is returned when a composite tool is created without children.
var ErrNoTools = errors.New("at least one tool is required")

// Pipeline runs its tools in order against one execution context and returns the output
// of the last one. A stage's error string is recorded under its name like any other output,
// and every stage runs once the pipeline has started.
type Pipeline struct {
	*toolexecutor.FunctionTool
	tools []toolexecutor.Tool
}

// NewPipeline creates a pipeline named "Pipeline".
func NewPipeline(tools ...toolexecutor.Tool) (*Pipeline, error) {
	if len(tools) == 0 {
		return nil, ErrNoTools
	}
	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("pipeline tool %d is nil", i)
		}
	}

	p := &Pipeline{tools: append([]toolexecutor.Tool(nil), tools...)}
	p.FunctionTool = toolexecutor.NewFunctionTool("Pipeline", "Executes a sequence of tools, passing results through a shared context", p)
	return p, nil
}

// WithName renames the pipeline.
func (p *Pipeline) WithName(name string) *Pipeline {
	p.FunctionTool.WithName(name)
	return p
}

// WithDescription replaces the description.
func (p *Pipeline) WithDescription(description string) *Pipeline {
	p.FunctionTool.WithDescription(description)
	return p
}

// Tools returns the pipeline stages.
func (p *Pipeline) Tools() []toolexecutor.Tool {
	return append([]toolexecutor.Tool(nil), p.tools...)
}

// Parameters is the union of the stages' parameters, minus those produced by an earlier stage.
// A stage produces its own name plus any keys it reports through toolexecutor.KeyProducer.
func (p *Pipeline) Parameters() []toolexecutor.ParameterDescriptor {
	produced := make(map[string]bool, len(p.tools))
	seen := make(map[string]bool)
	var params []toolexecutor.ParameterDescriptor

	for _, t := range p.tools {
		for _, param := range t.Descriptor().Parameters {
			if produced[param.Name] || seen[param.Name] {
				continue
			}
			seen[param.Name] = true
			params = append(params, param)
		}
		produced[t.Name()] = true
		if kp, ok := t.(toolexecutor.KeyProducer); ok {
			for _, key := range kp.ProducedKeys() {
				produced[key] = true
			}
		}
	}

	return params
}

// ExecuteCore implements toolexecutor.Core.
func (p *Pipeline) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	var output string

	for i, t := range p.tools {
		output = t.Execute(ctx, ec)
		if toolexecutor.IsError(output) {
			ec.RecordResult(t.Name(), output)
			log.Warn().
				Str("pipeline", p.Name()).
				Str("stage", t.Name()).
				Int("index", i).
				Msg("Pipeline stage returned an error result")
		}
	}

	return toolexecutor.Succeeded(output), nil
}
