package coretools

import (
	"context"
	"regexp"

	"github.com/harun/toolflow/pkg/toolexecutor"
)

// templateVar matches {{$name}} with optional spaces inside the braces.
var templateVar = regexp.MustCompile(`\{\{\s*\$([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Template is a prompt with {{$variable}} placeholders.
type Template struct {
	text      string
	variables []string
}

// ParseTemplate extracts the variables of text in order of first appearance.
func ParseTemplate(text string) Template {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range templateVar.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	return Template{text: text, variables: vars}
}

// Variables returns the placeholder names.
func (t Template) Variables() []string {
	return append([]string(nil), t.variables...)
}

// Parameters describes every variable as a required string parameter.
func (t Template) Parameters() []toolexecutor.ParameterDescriptor {
	params := make([]toolexecutor.ParameterDescriptor, len(t.variables))
	for i, v := range t.variables {
		params[i] = toolexecutor.ParameterDescriptor{
			Name:        v,
			Description: "Value for the " + v + " variable of the prompt",
			Required:    true,
			Type:        toolexecutor.StringType,
		}
	}
	return params
}

// Render substitutes each variable with its value from ec.
func (t Template) Render(ec *toolexecutor.ExecutionContext) string {
	return templateVar.ReplaceAllStringFunc(t.text, func(match string) string {
		name := templateVar.FindStringSubmatch(match)[1]
		value, ok := ec.Get(name)
		if !ok || value == nil {
			return ""
		}
		return toolexecutor.ToJSONString(value)
	})
}

// PromptTool renders a template from the execution context.
type PromptTool struct {
	*toolexecutor.FunctionTool
	template Template
}

// NewPromptTool creates a prompt tool named "Prompt".
func NewPromptTool(template string) *PromptTool {
	p := &PromptTool{template: ParseTemplate(template)}
	p.FunctionTool = toolexecutor.NewFunctionTool("Prompt", "Renders a prompt template with the given variables", p)
	return p
}

// WithName renames the tool.
func (p *PromptTool) WithName(name string) *PromptTool {
	p.FunctionTool.WithName(name)
	return p
}

// WithDescription replaces the description.
func (p *PromptTool) WithDescription(description string) *PromptTool {
	p.FunctionTool.WithDescription(description)
	return p
}

// Parameters implements toolexecutor.Core.
func (p *PromptTool) Parameters() []toolexecutor.ParameterDescriptor {
	return p.template.Parameters()
}

// ExecuteCore implements toolexecutor.Core.
func (p *PromptTool) ExecuteCore(_ context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	return toolexecutor.Succeeded(p.template.Render(ec)), nil
}
