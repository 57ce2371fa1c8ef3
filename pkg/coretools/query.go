package coretools

import (
	"context"
	"errors"
	"fmt"

	"github.com/harun/toolflow/pkg/llm"
	"github.com/harun/toolflow/pkg/toolexecutor"
)

// QueryTool renders a prompt and sends it to a language model.
type QueryTool struct {
	*toolexecutor.FunctionTool
	template    Template
	model       llm.LanguageModel
	system      string
	temperature float64
}

// NewQueryTool creates a query tool named "Query".
func NewQueryTool(template string, model llm.LanguageModel) *QueryTool {
	q := &QueryTool{template: ParseTemplate(template), model: model}
	q.FunctionTool = toolexecutor.NewFunctionTool("Query", "Answers a query rendered from a prompt template using a language model", q)
	return q
}

// WithSystemPrompt sets a system message sent before the rendered prompt.
func (q *QueryTool) WithSystemPrompt(system string) *QueryTool {
	q.system = system
	return q
}

// WithTemperature sets the sampling temperature.
func (q *QueryTool) WithTemperature(temperature float64) *QueryTool {
	q.temperature = temperature
	return q
}

// WithName renames the tool.
func (q *QueryTool) WithName(name string) *QueryTool {
	q.FunctionTool.WithName(name)
	return q
}

// WithDescription replaces the description.
func (q *QueryTool) WithDescription(description string) *QueryTool {
	q.FunctionTool.WithDescription(description)
	return q
}

// Parameters implements toolexecutor.Core.
func (q *QueryTool) Parameters() []toolexecutor.ParameterDescriptor {
	return q.template.Parameters()
}

// ExecuteCore implements toolexecutor.Core.
func (q *QueryTool) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	if q.model == nil {
		return toolexecutor.Result{}, errors.New("no language model configured")
	}

	var messages []llm.Message
	if q.system != "" {
		messages = append(messages, llm.SystemMessage(q.system))
	}
	messages = append(messages, llm.UserMessage(q.template.Render(ec)))

	resp, err := q.model.Generate(ctx, messages, q.temperature)
	if err != nil {
		return toolexecutor.Result{}, fmt.Errorf("model %s: %w", q.model.Name(), err)
	}
	return toolexecutor.Succeeded(resp.Content()), nil
}
