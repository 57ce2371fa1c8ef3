package coretools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/harun/toolflow/pkg/llm"
	"github.com/harun/toolflow/pkg/toolexecutor"
)

const (
	// ExtractorInput is the parameter holding the text to extract from.
	ExtractorInput = "input"

	extractFunction = "extract_data"
	extractPrompt   = "Extract the requested information from the user's text and report it by calling " +
		extractFunction + ". Leave a field empty when the text does not contain it."
)

// Field is one value a DataExtractorTool asks the model for.
type Field struct {
	Name        string
	Description string
}

// FieldsFromMap converts a name to description mapping into fields sorted by name.
func FieldsFromMap(m map[string]string) []Field {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name, Description: m[name]}
	}
	return fields
}

// DataExtractorTool asks a language model to fill a set of named fields from free text.
// The result is an object keyed by field name.
type DataExtractorTool struct {
	*toolexecutor.FunctionTool
	model       llm.LanguageModel
	function    toolexecutor.FunctionDescriptor
	temperature float64
}

// NewDataExtractorTool creates an extractor named "DataExtractor".
func NewDataExtractorTool(model llm.LanguageModel, fields []Field) (*DataExtractorTool, error) {
	if len(fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	params := make([]toolexecutor.ParameterDescriptor, len(fields))
	for i, f := range fields {
		params[i] = toolexecutor.ParameterDescriptor{
			Name:        f.Name,
			Description: f.Description,
			Type:        toolexecutor.StringType,
		}
	}
	function, err := toolexecutor.NewFunctionDescriptor(extractFunction, "Reports the extracted information", params...)
	if err != nil {
		return nil, err
	}

	d := &DataExtractorTool{model: model, function: function}
	d.FunctionTool = toolexecutor.NewFunctionTool("DataExtractor", "Extracts structured data from the given text", d)
	return d, nil
}

// WithTemperature sets the sampling temperature.
func (d *DataExtractorTool) WithTemperature(temperature float64) *DataExtractorTool {
	d.temperature = temperature
	return d
}

// WithName renames the tool.
func (d *DataExtractorTool) WithName(name string) *DataExtractorTool {
	d.FunctionTool.WithName(name)
	return d
}

// WithDescription replaces the description.
func (d *DataExtractorTool) WithDescription(description string) *DataExtractorTool {
	d.FunctionTool.WithDescription(description)
	return d
}

// Parameters implements toolexecutor.Core.
func (d *DataExtractorTool) Parameters() []toolexecutor.ParameterDescriptor {
	return []toolexecutor.ParameterDescriptor{{
		Name:        ExtractorInput,
		Description: "Text to extract the data from",
		Required:    true,
		Type:        toolexecutor.StringType,
	}}
}

// ExecuteCore implements toolexecutor.Core.
func (d *DataExtractorTool) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	if d.model == nil {
		return toolexecutor.Result{}, errors.New("no language model configured")
	}

	messages := []llm.Message{
		llm.SystemMessage(extractPrompt),
		llm.UserMessage(toolexecutor.ToJSONString(ec.Value(ExtractorInput))),
	}
	resp, err := d.model.GenerateWithFunctions(ctx, messages, []toolexecutor.FunctionDescriptor{d.function}, d.temperature)
	if err != nil {
		return toolexecutor.Result{}, fmt.Errorf("model %s: %w", d.model.Name(), err)
	}
	if resp.FunctionCall == nil || resp.FunctionCall.Name != extractFunction {
		return toolexecutor.Result{}, fmt.Errorf("model did not call %s", extractFunction)
	}

	data := make(map[string]interface{}, len(d.function.Parameters))
	for _, p := range d.function.Parameters {
		if v, ok := resp.FunctionCall.Arguments[p.Name]; ok && v != nil {
			data[p.Name] = toolexecutor.ToJSONString(v)
		} else {
			data[p.Name] = ""
		}
	}
	return toolexecutor.Succeeded(data), nil
}
