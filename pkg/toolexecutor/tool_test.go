package toolexecutor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCore captures the context values it observes.
type recordingCore struct {
	params []ParameterDescriptor
	calls  int
	seen   map[string]interface{}
	result Result
	err    error
	panic  bool
}

func (c *recordingCore) Parameters() []ParameterDescriptor { return c.params }

func (c *recordingCore) ExecuteCore(ctx context.Context, ec *ExecutionContext) (Result, error) {
	c.calls++
	c.seen = ec.Snapshot()
	if c.panic {
		panic("boom")
	}
	return c.result, c.err
}

func newRecordingTool(name string, params ...ParameterDescriptor) (*FunctionTool, *recordingCore) {
	core := &recordingCore{params: params, result: Succeeded("done")}
	return NewFunctionTool(name, "", core), core
}

func TestFunctionTool_RecordsOutputUnderName(t *testing.T) {
	tool, core := newRecordingTool("echo", ParameterDescriptor{Name: "text", Type: StringType, Required: true})
	core.result = Succeeded(map[string]interface{}{"answer": 42.0})

	ec := NewExecutionContext(map[string]interface{}{"text": "hi"})
	out := tool.Execute(context.Background(), ec)

	assert.JSONEq(t, `{"answer":42}`, out)
	recorded, ok := ec.Result("echo")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"answer": 42.0}, recorded)
}

func TestFunctionTool_MissingRequiredParameterSkipsCore(t *testing.T) {
	tool, core := newRecordingTool("needs_input", ParameterDescriptor{Name: "text", Type: StringType, Required: true})

	ec := NewExecutionContext(nil)
	out := tool.Execute(context.Background(), ec)

	assert.Equal(t, "ERROR: Failed to execute Tool: needs_input", out)
	assert.True(t, IsError(out))
	assert.Equal(t, 0, core.calls)
	_, recorded := ec.Result("needs_input")
	assert.False(t, recorded)
}

func TestFunctionTool_OptionalParameterSetToNil(t *testing.T) {
	tool, core := newRecordingTool("opt", ParameterDescriptor{Name: "extra", Type: StringType})

	ec := NewExecutionContext(nil)
	out := tool.Execute(context.Background(), ec)

	assert.Equal(t, "done", out)
	value, found := ec.Get("extra")
	assert.True(t, found)
	assert.Nil(t, value)
	assert.Contains(t, core.seen, "extra")
}

func TestFunctionTool_FailuresBecomeErrorStrings(t *testing.T) {
	tests := []struct {
		name string
		mod  func(c *recordingCore)
	}{
		{name: "core error", mod: func(c *recordingCore) { c.err = errors.New("backend down") }},
		{name: "success false", mod: func(c *recordingCore) { c.result = Result{Success: false, Output: "nope"} }},
		{name: "panic", mod: func(c *recordingCore) { c.panic = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, core := newRecordingTool("fragile")
			tt.mod(core)

			ec := NewExecutionContext(nil)
			out := tool.Execute(context.Background(), ec)

			assert.Equal(t, FailureMessage("fragile"), out)
			assert.Equal(t, 1, core.calls)
			_, recorded := ec.Result("fragile")
			assert.False(t, recorded)
		})
	}
}

func TestFunctionTool_DuplicateParametersFailValidation(t *testing.T) {
	tool, core := newRecordingTool("dup",
		ParameterDescriptor{Name: "x", Type: StringType},
		ParameterDescriptor{Name: "x", Type: NumberType},
	)

	out := tool.Execute(context.Background(), NewExecutionContext(nil))

	assert.True(t, IsError(out))
	assert.Equal(t, 0, core.calls)
}

func TestFunctionTool_WithNameAndDescription(t *testing.T) {
	tool, _ := newRecordingTool("original")
	assert.Equal(t, "Executes a tool: original", tool.Description())

	tool.WithName("renamed").WithDescription("Renamed tool").WithDescription("")

	assert.Equal(t, "renamed", tool.Name())
	assert.Equal(t, "Renamed tool", tool.Description())
	assert.Equal(t, "renamed", tool.Descriptor().Name)

	ec := NewExecutionContext(nil)
	tool.Execute(context.Background(), ec)
	_, ok := ec.Result("renamed")
	assert.True(t, ok)
}

func TestFunctionTool_NilContext(t *testing.T) {
	tool, _ := newRecordingTool("nil_ctx")
	//nolint:staticcheck // nil context is tolerated by the envelope
	out := tool.Execute(nil, nil)
	assert.Equal(t, "done", out)
}
