package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/harun/toolflow/pkg/toolexecutor"
)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultMaxTokens      = 1024
)

// AnthropicConfig configures an Anthropic client.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// AnthropicModel implements LanguageModel with the messages API.
type AnthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicModel creates a chat model.
func NewAnthropicModel(cfg AnthropicConfig, opts ...option.RequestOption) *AnthropicModel {
	var clientOpts []option.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicModel{
		client:    anthropic.NewClient(clientOpts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Name returns the model name.
func (m *AnthropicModel) Name() string {
	return m.model
}

// Generate returns the model's text answer.
func (m *AnthropicModel) Generate(ctx context.Context, messages []Message, temperature float64) (*Response, error) {
	return m.GenerateWithFunctions(ctx, messages, nil, temperature)
}

// GenerateWithFunctions offers functions to the model as tools.
func (m *AnthropicModel) GenerateWithFunctions(ctx context.Context, messages []Message, functions []toolexecutor.FunctionDescriptor, temperature float64) (*Response, error) {
	var system []anthropic.TextBlockParam
	anthropicMessages := []anthropic.MessageParam{}

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		case RoleFunction:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(fmt.Sprintf("Result of %s: %s", msg.Name, msg.Content)),
			))
		default:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	reqParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		Messages:  anthropicMessages,
		MaxTokens: int64(m.maxTokens),
	}

	if len(system) > 0 {
		reqParams.System = system
	}

	if temperature > 0 {
		reqParams.Temperature = anthropic.Float(temperature)
	}

	if len(functions) > 0 {
		tools := []anthropic.ToolUnionParam{}
		for _, fd := range functions {
			schema := fd.JSONSchema()

			toolParam := anthropic.ToolParam{
				Name:        fd.Name,
				Description: anthropic.String(fd.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema["properties"],
				},
			}
			if required, ok := schema["required"].([]string); ok {
				toolParam.InputSchema.Required = required
			}

			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		reqParams.Tools = tools
	}

	response, err := m.client.Messages.New(ctx, reqParams)
	if err != nil {
		return nil, err
	}

	result := &Response{
		Type: ResponseText,
		Usage: Usage{
			PromptTokens:     int(response.Usage.InputTokens),
			CompletionTokens: int(response.Usage.OutputTokens),
		},
	}

	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			result.Text += b.Text
		case anthropic.ToolUseBlock:
			if result.FunctionCall != nil {
				continue
			}
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			result.Type = ResponseFunctionCall
			result.FunctionCall = &FunctionCall{Name: b.Name, Arguments: args}
		}
	}

	return result, nil
}

var _ LanguageModel = (*AnthropicModel)(nil)
