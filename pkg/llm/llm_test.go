package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder serves a canned JSON body and keeps the last decoded request.
type recorder struct {
	path string
	body map[string]interface{}
}

func newServer(t *testing.T, rec *recorder, response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &rec.body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func weatherDescriptor(t *testing.T) toolexecutor.FunctionDescriptor {
	fd, err := toolexecutor.NewFunctionDescriptor("get_weather", "Gets the weather",
		toolexecutor.ParameterDescriptor{Name: "location", Description: "City", Type: toolexecutor.StringType, Required: true})
	require.NoError(t, err)
	return fd
}

func TestOpenAIModel_Generate(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, `{"id":"c","object":"chat.completion","created":0,"model":"gpt-4o-mini",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Paris"}}],
		"usage":{"prompt_tokens":7,"completion_tokens":1,"total_tokens":8}}`)

	model := NewOpenAIModel(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/"}, option.WithMaxRetries(0))
	assert.Equal(t, DefaultOpenAIModel, model.Name())

	resp, err := model.Generate(context.Background(), []Message{
		SystemMessage("Answer briefly."),
		UserMessage("Capital of France?"),
	}, 0.2)
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", rec.path)
	assert.Equal(t, ResponseText, resp.Type)
	assert.Equal(t, "Paris", resp.Content())
	assert.Equal(t, 7, resp.Usage.PromptTokens)

	messages, ok := rec.body["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)
	assert.Equal(t, 0.2, rec.body["temperature"])
	assert.Nil(t, rec.body["tools"])
}

func TestOpenAIModel_FunctionCall(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, `{"id":"c","object":"chat.completion","created":0,"model":"gpt-4o-mini",
		"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"",
		"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"location\":\"Boston\"}"}}]}}],
		"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)

	model := NewOpenAIModel(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/", Model: "gpt-4o"}, option.WithMaxRetries(0))
	resp, err := model.GenerateWithFunctions(context.Background(), []Message{UserMessage("Weather in Boston?")},
		[]toolexecutor.FunctionDescriptor{weatherDescriptor(t)}, 0)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", rec.body["model"])
	tools, ok := rec.body["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)

	assert.Equal(t, ResponseFunctionCall, resp.Type)
	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "get_weather", resp.FunctionCall.Name)
	assert.Equal(t, "Boston", resp.FunctionCall.Arguments["location"])
	assert.JSONEq(t, `{"name":"get_weather","arguments":{"location":"Boston"}}`, resp.Content())
}

func TestOpenAIModel_NoChoices(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, `{"id":"c","object":"chat.completion","created":0,"model":"m","choices":[]}`)

	model := NewOpenAIModel(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/"}, option.WithMaxRetries(0))
	_, err := model.Generate(context.Background(), []Message{UserMessage("hi")}, 0)
	assert.Error(t, err)
}

func TestOpenAIEmbedder(t *testing.T) {
	vector := make([]float64, vectorstore.DefaultVectorLength)
	vector[0] = 0.5
	payload, err := json.Marshal(map[string]interface{}{
		"object": "list",
		"model":  DefaultEmbeddingModel,
		"data":   []interface{}{map[string]interface{}{"object": "embedding", "index": 0, "embedding": vector}},
		"usage":  map[string]interface{}{"prompt_tokens": 1, "total_tokens": 1},
	})
	require.NoError(t, err)

	rec := &recorder{}
	srv := newServer(t, rec, string(payload))

	embedder := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/"}, option.WithMaxRetries(0))
	assert.Equal(t, "openai:text-embedding-ada-002", embedder.Name())
	assert.Equal(t, vectorstore.DefaultVectorLength, embedder.VectorLength())

	got, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "/embeddings", rec.path)
	assert.Equal(t, "hello", rec.body["input"])
	assert.Len(t, got, vectorstore.DefaultVectorLength)
	assert.Equal(t, 0.5, got[0])
}

func TestOpenAIEmbedder_WrongDimension(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, `{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2]}],
		"usage":{"prompt_tokens":1,"total_tokens":1}}`)

	embedder := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/"}, option.WithMaxRetries(0))
	_, err := embedder.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestRegisterEmbedders(t *testing.T) {
	registry := vectorstore.NewEmbedderRegistry()
	RegisterEmbedders(registry, OpenAIConfig{APIKey: "test"})

	large, err := registry.Resolve(EmbedderName("text-embedding-3-large"))
	require.NoError(t, err)
	assert.Equal(t, 3072, large.VectorLength())

	def, err := registry.Default()
	require.NoError(t, err)
	assert.Equal(t, EmbedderName(DefaultEmbeddingModel), def.Name())
}

func TestAnthropicModel_Generate(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
		"content":[{"type":"text","text":"Paris"}],"stop_reason":"end_turn",
		"usage":{"input_tokens":9,"output_tokens":2}}`)

	model := NewAnthropicModel(AnthropicConfig{APIKey: "test", BaseURL: srv.URL + "/"}, anthropicoption.WithMaxRetries(0))
	resp, err := model.Generate(context.Background(), []Message{
		SystemMessage("Answer briefly."),
		UserMessage("Capital of France?"),
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", rec.path)
	assert.Equal(t, "Paris", resp.Content())
	assert.Equal(t, 9, resp.Usage.PromptTokens)
	assert.Equal(t, float64(defaultMaxTokens), rec.body["max_tokens"])

	messages, ok := rec.body["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 1)
	assert.NotNil(t, rec.body["system"])
}

func TestAnthropicModel_ToolUse(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
		"content":[{"type":"text","text":"Checking."},{"type":"tool_use","id":"tu_1","name":"get_weather","input":{"location":"Boston"}}],
		"stop_reason":"tool_use","usage":{"input_tokens":1,"output_tokens":1}}`)

	model := NewAnthropicModel(AnthropicConfig{APIKey: "test", BaseURL: srv.URL + "/"}, anthropicoption.WithMaxRetries(0))
	resp, err := model.GenerateWithFunctions(context.Background(), []Message{UserMessage("Weather?")},
		[]toolexecutor.FunctionDescriptor{weatherDescriptor(t)}, 0)
	require.NoError(t, err)

	tools, ok := rec.body["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)

	assert.Equal(t, ResponseFunctionCall, resp.Type)
	assert.Equal(t, "Checking.", resp.Text)
	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "get_weather", resp.FunctionCall.Name)
	assert.Equal(t, "Boston", resp.FunctionCall.Arguments["location"])
}
