package coretools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"sync"
	"testing"

	"github.com/harun/toolflow/pkg/graph"
	"github.com/harun/toolflow/pkg/llm"
	"github.com/harun/toolflow/pkg/memory"
	"github.com/harun/toolflow/pkg/plugin"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoModel answers with "echo: <last message>" unless a response or error is scripted.
type echoModel struct {
	mu        sync.Mutex
	response  *llm.Response
	err       error
	messages  []llm.Message
	functions []toolexecutor.FunctionDescriptor
}

func (m *echoModel) Name() string { return "echo" }

func (m *echoModel) Generate(ctx context.Context, messages []llm.Message, temperature float64) (*llm.Response, error) {
	return m.GenerateWithFunctions(ctx, messages, nil, temperature)
}

func (m *echoModel) GenerateWithFunctions(_ context.Context, messages []llm.Message, functions []toolexecutor.FunctionDescriptor, _ float64) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = messages
	m.functions = functions
	if m.err != nil {
		return nil, m.err
	}
	if m.response != nil {
		return m.response, nil
	}
	return &llm.Response{Type: llm.ResponseText, Text: "echo: " + messages[len(messages)-1].Content}, nil
}

func TestParseTemplate(t *testing.T) {
	tmpl := ParseTemplate("The capital of {{$state}} is {{ $city }}; {{$state}} again, {{$ bad}} and {{state}}.")
	assert.Equal(t, []string{"state", "city"}, tmpl.Variables())

	params := tmpl.Parameters()
	require.Len(t, params, 2)
	assert.True(t, params[0].Required)
	assert.Equal(t, toolexecutor.StringType, params[1].Type)

	ec := toolexecutor.NewExecutionContext(map[string]interface{}{"state": "Kerala", "city": "Thiruvananthapuram"})
	assert.Equal(t, "The capital of Kerala is Thiruvananthapuram; Kerala again, {{$ bad}} and {{state}}.", tmpl.Render(ec))
}

func TestPromptTool(t *testing.T) {
	tool := NewPromptTool("{{$n}} items for {{$who}}").WithName("question")

	ec := toolexecutor.NewExecutionContext(map[string]interface{}{"n": 3, "who": "Ann"})
	assert.Equal(t, "3 items for Ann", tool.Execute(context.Background(), ec))

	recorded, ok := ec.Result("question")
	require.True(t, ok)
	assert.Equal(t, "3 items for Ann", recorded)

	out := tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{"n": 1}))
	assert.Equal(t, toolexecutor.FailureMessage("question"), out)
}

func TestQueryTool(t *testing.T) {
	model := &echoModel{}
	tool := NewQueryTool("Tell me about {{$topic}}", model).WithSystemPrompt("Be brief.")

	out := tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{"topic": "Go"}))
	assert.Equal(t, "echo: Tell me about Go", out)
	require.Len(t, model.messages, 2)
	assert.Equal(t, llm.RoleSystem, model.messages[0].Role)

	model.err = errors.New("rate limited")
	out = tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{"topic": "Go"}))
	assert.Equal(t, toolexecutor.FailureMessage("Query"), out)

	noModel := NewQueryTool("{{$topic}}", nil)
	assert.True(t, toolexecutor.IsError(noModel.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{"topic": "x"}))))
}

func TestHTTPGetTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body><h1>Title</h1><p>Hello <strong>world</strong></p></body></html>"))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("just text"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tool := NewHTTPGetTool(0)

	out := tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{HTTPInput: srv.URL + "/page"}))
	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "**world**")
	assert.NotContains(t, out, "<p>")

	out = tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{HTTPInput: srv.URL + "/plain"}))
	assert.Equal(t, "just text", out)

	out = tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{HTTPInput: srv.URL + "/missing"}))
	assert.Equal(t, toolexecutor.FailureMessage("HttpGet"), out)
}

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"-c 'echo hi'", []string{"-c", "echo hi"}},
		{`a "b c" d\ e`, []string{"a", "b c", "d e"}},
		{`x ""`, []string{"x", ""}},
		{"  spaced\tout  ", []string{"spaced", "out"}},
	}
	for _, tt := range tests {
		got, err := SplitArguments(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	_, err := SplitArguments(`"open`)
	assert.Error(t, err)
}

func TestProcessExecutor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	_, err := NewProcessExecutor("/does/not/exist", "")
	assert.Error(t, err)

	dir := t.TempDir()
	p, err := NewProcessExecutor("/bin/sh", dir)
	require.NoError(t, err)

	out := p.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{ProcessInput: "-c 'echo hello; pwd'"}))
	assert.Contains(t, out, "hello\n")
	assert.Contains(t, out, dir)

	out = p.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{ProcessInput: "-c 'echo oops >&2'"}))
	assert.Equal(t, toolexecutor.FailureMessage("ProcessExecutor"), out)

	out = p.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{ProcessInput: "-c 'exit 3'"}))
	assert.True(t, toolexecutor.IsError(out))
}

func TestDataExtractorTool(t *testing.T) {
	fields := FieldsFromMap(map[string]string{
		"PO No.":        "What is the purchase order number.",
		"Customer Name": "What is the name of the company sending this Purchase Order.",
		"Total Amount":  "What is the total amount of the PO",
	})
	require.Equal(t, "Customer Name", fields[0].Name)

	model := &echoModel{response: &llm.Response{
		Type: llm.ResponseFunctionCall,
		FunctionCall: &llm.FunctionCall{
			Name:      extractFunction,
			Arguments: map[string]interface{}{"Customer Name": "Acme", "PO No.": float64(4711)},
		},
	}}
	tool, err := NewDataExtractorTool(model, fields)
	require.NoError(t, err)

	out := tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{ExtractorInput: "PO 4711 from Acme"}))
	assert.JSONEq(t, `{"Customer Name":"Acme","PO No.":"4711","Total Amount":""}`, out)

	require.Len(t, model.functions, 1)
	assert.Equal(t, extractFunction, model.functions[0].Name)
	assert.Len(t, model.functions[0].Parameters, 3)
	assert.Equal(t, "PO 4711 from Acme", model.messages[1].Content)

	model.response = &llm.Response{Type: llm.ResponseText, Text: "I could not find it"}
	out = tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{ExtractorInput: "?"}))
	assert.Equal(t, toolexecutor.FailureMessage("DataExtractor"), out)

	_, err = NewDataExtractorTool(model, nil)
	assert.Error(t, err)
}

func newBuilder(t *testing.T, model llm.LanguageModel) *graph.Builder {
	t.Helper()
	registry := plugin.NewRegistry(t.TempDir())
	require.NoError(t, RegisterCoreTools(registry, Options{Model: model, Logger: zerolog.Nop()}))
	return graph.NewBuilder(registry, zerolog.Nop())
}

func TestRegisterCoreTools(t *testing.T) {
	registry := plugin.NewRegistry(t.TempDir())
	require.NoError(t, RegisterCoreTools(registry, Options{Logger: zerolog.Nop()}))

	for _, class := range []string{"PromptTool", "QueryTool", "HttpGetTool", "ProcessExecutor", "DataExtractorTool", "CombineTool", "Pipeline", "MapReduce"} {
		assert.NotEmpty(t, registry.Constructors(ModuleName, class), class)
	}
	assert.NotEmpty(t, registry.Constructors(memory.ModuleName, "SemanticSearch"))

	_, err := registry.Constructors(ModuleName, "QueryTool")[0].New([]interface{}{"{{$x}}", "", 0.0, "Query", ""})
	assert.Error(t, err, "query tool needs a model")

	assert.Error(t, RegisterCoreTools(nil, Options{}))
}

func TestRecipe_MapReduce(t *testing.T) {
	builder := newBuilder(t, nil)

	tool, err := builder.BuildDocument([]byte(`
module: coretools
classname: MapReduce
parameters:
  name: Capitals
  workers: 2
  mapper:
    module: coretools
    classname: PromptTool
    parameters:
      template: "The capital of {{$state}} is {{$city}}."
  reducer:
    module: coretools
    classname: CombineTool
    parameters:
      separator: " "
`))
	require.NoError(t, err)
	assert.Equal(t, "Capitals", tool.Name())

	ec := toolexecutor.NewExecutionContext(map[string]interface{}{
		"state": []interface{}{"Kerala", "Bihar"},
		"city":  []interface{}{"Thiruvananthapuram", "Patna"},
	})
	out := tool.Execute(context.Background(), ec)
	assert.Equal(t, "The capital of Kerala is Thiruvananthapuram. The capital of Bihar is Patna.", out)
}

func TestRecipe_PromptQueryPipeline(t *testing.T) {
	model := &echoModel{}
	builder := newBuilder(t, model)

	tool, err := builder.BuildDocument([]byte(`{
		"module": "coretools",
		"classname": "Pipeline",
		"parameters": {
			"name": "Ask",
			"tools": [
				{"module": "coretools", "classname": "PromptTool",
				 "parameters": {"template": "Tell me about {{$topic}}", "name": "question"}},
				{"module": "coretools", "classname": "QueryTool",
				 "parameters": {"template": "{{$question}}", "name": "answer"}}
			]
		}
	}`))
	require.NoError(t, err)

	params := tool.Descriptor().Parameters
	require.Len(t, params, 1)
	assert.Equal(t, "topic", params[0].Name)

	ec := toolexecutor.NewExecutionContext(map[string]interface{}{"topic": "Go"})
	assert.Equal(t, "echo: Tell me about Go", tool.Execute(context.Background(), ec))

	question, ok := ec.Result("question")
	require.True(t, ok)
	assert.Equal(t, "Tell me about Go", question)
}

func TestRecipe_QueryWithoutModel(t *testing.T) {
	builder := newBuilder(t, nil)

	_, err := builder.BuildDocument([]byte(`
module: coretools
classname: QueryTool
parameters:
  template: "{{$x}}"
`))
	assert.ErrorIs(t, err, graph.ErrUnresolved)
}

func TestRecipe_DataExtractorFieldsJSON(t *testing.T) {
	model := &echoModel{response: &llm.Response{
		Type:         llm.ResponseFunctionCall,
		FunctionCall: &llm.FunctionCall{Name: extractFunction, Arguments: map[string]interface{}{"city": "Oslo"}},
	}}
	builder := newBuilder(t, model)

	tool, err := builder.BuildDocument([]byte(`
module: coretools
classname: DataExtractorTool
parameters:
  fields: '{"city": "Which city is mentioned", "country": "Which country"}'
`))
	require.NoError(t, err)

	out := tool.Execute(context.Background(), toolexecutor.NewExecutionContext(map[string]interface{}{ExtractorInput: "I live in Oslo"}))
	assert.JSONEq(t, `{"city":"Oslo","country":""}`, out)
}
