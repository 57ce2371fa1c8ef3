package toolexecutor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorPrefix starts every failed tool result.
const ErrorPrefix = "ERROR:"

var (
	// ErrParameterValidation means a required input was missing or could not be typed.
	ErrParameterValidation = errors.New("parameter validation failed")
	// ErrCoreExecution means the tool's own logic failed, returned failure or panicked.
	ErrCoreExecution = errors.New("core execution failed")
	// ErrToolNotFound is returned by lookups on the named registry.
	ErrToolNotFound = errors.New("tool not found")
)

// ToolError carries the failure detail that is logged but never shown to callers.
type ToolError struct {
	Tool  string
	Kind  error
	Param string
	Err   error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Param != "" {
		fmt.Fprintf(&b, " (parameter %s)", e.Param)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the failure kind, so errors.Is(err, ErrParameterValidation) works.
func (e *ToolError) Is(target error) bool {
	return e.Kind == target
}

func (e *ToolError) Unwrap() error { return e.Err }

// FailureMessage is the fixed text a caller receives when the named tool fails.
func FailureMessage(toolName string) string {
	return fmt.Sprintf("%s Failed to execute Tool: %s", ErrorPrefix, toolName)
}

// IsError reports whether a tool result is an error string.
func IsError(output string) bool {
	return strings.HasPrefix(output, ErrorPrefix)
}
