// Package toolexecutor defines the tool contract shared by every unit of a tool graph.
//
// Invariants:
// - A tool's output is recorded in the ExecutionContext under the tool's own name.
// - Parameters are validated and coerced before core logic runs; a failed validation
//   never reaches the core.
// - Execute never panics or returns an error value; failures come back as text
//   starting with "ERROR:" and details go to the log.
//
// Usage:
//
//	ec := toolexecutor.NewExecutionContext(map[string]interface{}{"topic": "AI"})
//	out := tool.Execute(ctx, ec)
//	if toolexecutor.IsError(out) {
//		// inspect logs
//	}
package toolexecutor
