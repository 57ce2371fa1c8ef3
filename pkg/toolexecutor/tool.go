package toolexecutor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/harun/toolflow/internal/observability"
	"github.com/harun/toolflow/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// maxLoggedOutput bounds how much of a tool result is written to the log.
const maxLoggedOutput = 500

// Tool is the contract every executable unit in a graph implements.
type Tool interface {
	Name() string
	Description() string
	// Descriptor is computed once and cached.
	Descriptor() FunctionDescriptor
	// Execute never fails: errors come back as text starting with ErrorPrefix.
	Execute(ctx context.Context, ec *ExecutionContext) string
}

// KeyProducer is implemented by tools that write context keys besides their own result.
type KeyProducer interface {
	ProducedKeys() []string
}

// Result is what a tool's core logic produces.
type Result struct {
	Success bool
	Output  interface{}
}

// Succeeded wraps output in a successful Result.
func Succeeded(output interface{}) Result {
	return Result{Success: true, Output: output}
}

// Core is the tool-specific part plugged into a FunctionTool.
type Core interface {
	Parameters() []ParameterDescriptor
	ExecuteCore(ctx context.Context, ec *ExecutionContext) (Result, error)
}

// FunctionTool implements the execution envelope shared by all tools: validate and coerce
// parameters, run the core, record the output under the tool name, and turn every failure
// into an error string. Concrete tools embed *FunctionTool and provide a Core.
type FunctionTool struct {
	name        string
	description string
	core        Core

	once       sync.Once
	parameters []ParameterDescriptor
	descErr    error
}

// NewFunctionTool creates the envelope for core.
func NewFunctionTool(name, description string, core Core) *FunctionTool {
	if description == "" {
		description = fmt.Sprintf("Executes a tool: %s", name)
	}
	return &FunctionTool{
		name:        name,
		description: description,
		core:        core,
	}
}

// Name returns the tool name; the output is recorded under it.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the tool description.
func (t *FunctionTool) Description() string { return t.description }

// WithName renames the tool.
func (t *FunctionTool) WithName(name string) *FunctionTool {
	if name != "" {
		t.name = name
	}
	return t
}

// WithDescription replaces the description; empty values are ignored.
func (t *FunctionTool) WithDescription(description string) *FunctionTool {
	if description != "" {
		t.description = description
	}
	return t
}

// Descriptor returns the tool's public contract.
func (t *FunctionTool) Descriptor() FunctionDescriptor {
	t.loadParameters()
	return FunctionDescriptor{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

func (t *FunctionTool) loadParameters() {
	t.once.Do(func() {
		t.parameters = t.core.Parameters()
		fd := FunctionDescriptor{Name: t.name, Parameters: t.parameters}
		t.descErr = fd.Validate()
	})
}

// Execute runs the envelope. It never panics and never returns an error value.
func (t *FunctionTool) Execute(ctx context.Context, ec *ExecutionContext) (output string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ec == nil {
		ec = NewExecutionContext(nil)
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(tracing.WithRunID(ctx, ec.RunID()), "toolflow/toolexecutor", t.name,
		attribute.String("tool.name", t.name),
		attribute.String("run.id", ec.RunID()),
	)
	var spanErr error
	defer func() { tracing.EndSpan(span, spanErr) }()

	logger := tracing.LoggerFromContext(ctx, log.With().Str("tool", t.name).Logger())

	fail := func(err *ToolError) string {
		reason := "execution"
		if err.Kind == ErrParameterValidation {
			reason = "validation"
		}
		spanErr = err
		logger.Error().Err(err).Msg("Tool execution failed")
		observability.RecordToolError(t.name, reason)
		observability.RecordToolExecution(t.name, time.Since(start), false)
		return FailureMessage(t.name)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Debug().Str("stack", string(debug.Stack())).Msg("Recovered tool panic")
			output = fail(&ToolError{Tool: t.name, Kind: ErrCoreExecution, Err: fmt.Errorf("panic: %v", p)})
		}
	}()

	t.loadParameters()
	if t.descErr != nil {
		return fail(&ToolError{Tool: t.name, Kind: ErrParameterValidation, Err: t.descErr})
	}

	if err := validateParameters(ec, t.parameters); err != nil {
		return fail(&ToolError{Tool: t.name, Kind: ErrParameterValidation, Err: err})
	}

	logger.Info().Msg("Started executing tool")

	result, err := t.core.ExecuteCore(ctx, ec)
	if err != nil {
		return fail(&ToolError{Tool: t.name, Kind: ErrCoreExecution, Err: err})
	}
	if !result.Success {
		return fail(&ToolError{Tool: t.name, Kind: ErrCoreExecution, Err: fmt.Errorf("tool reported failure: %s", ToJSONString(result.Output))})
	}

	ec.RecordResult(t.name, result.Output)
	output = ToJSONString(result.Output)

	logged := output
	if len(logged) > maxLoggedOutput {
		logged = logged[:maxLoggedOutput]
	}
	logger.Info().
		Dur("duration", time.Since(start)).
		Str("output", logged).
		Msg("Tool execution completed")
	observability.RecordToolExecution(t.name, time.Since(start), true)

	return output
}

var _ Tool = (*FunctionTool)(nil)
