package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no chat model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures OpenAI and Azure OpenAI clients.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// AzureEndpoint and APIVersion switch the client to Azure OpenAI; Model is then the
	// deployment name.
	AzureEndpoint string
	APIVersion    string
}

func (c OpenAIConfig) requestOptions(extra []option.RequestOption) []option.RequestOption {
	var opts []option.RequestOption
	if c.AzureEndpoint != "" {
		opts = append(opts, azure.WithEndpoint(c.AzureEndpoint, c.APIVersion), azure.WithAPIKey(c.APIKey))
	} else if c.APIKey != "" {
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	return append(opts, extra...)
}

// OpenAIModel implements LanguageModel with chat completions.
type OpenAIModel struct {
	client openai.Client
	model  string
}

// NewOpenAIModel creates a chat model. Extra options are applied after the configured ones.
func NewOpenAIModel(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAIModel {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIModel{
		client: openai.NewClient(cfg.requestOptions(opts)...),
		model:  model,
	}
}

// Name returns the model name.
func (m *OpenAIModel) Name() string {
	return m.model
}

// Generate returns the model's text answer.
func (m *OpenAIModel) Generate(ctx context.Context, messages []Message, temperature float64) (*Response, error) {
	return m.GenerateWithFunctions(ctx, messages, nil, temperature)
}

// GenerateWithFunctions offers functions to the model as tools.
func (m *OpenAIModel) GenerateWithFunctions(ctx context.Context, messages []Message, functions []toolexecutor.FunctionDescriptor, temperature float64) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.model),
		Messages: openAIMessages(messages),
	}

	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	if len(functions) > 0 {
		tools := []openai.ChatCompletionToolParam{}
		for _, fd := range functions {
			tools = append(tools, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        fd.Name,
					Description: openai.String(fd.Description),
					Parameters:  openai.FunctionParameters(fd.JSONSchema()),
				},
			})
		}
		params.Tools = tools
	}

	response, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, errors.New("no response choices returned")
	}

	choice := response.Choices[0]
	result := &Response{
		Type: ResponseText,
		Text: choice.Message.Content,
		Usage: Usage{
			PromptTokens:     int(response.Usage.PromptTokens),
			CompletionTokens: int(response.Usage.CompletionTokens),
		},
	}

	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]

		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse function arguments: %w", err)
		}

		result.Type = ResponseFunctionCall
		result.FunctionCall = &FunctionCall{Name: tc.Function.Name, Arguments: args}
	}

	return result, nil
}

func openAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case RoleFunction:
			// function results are replayed as user-visible context
			out = append(out, openai.UserMessage(fmt.Sprintf("Result of %s: %s", msg.Name, msg.Content)))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

var _ LanguageModel = (*OpenAIModel)(nil)
