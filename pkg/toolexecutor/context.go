package toolexecutor

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ExecutionContext is the shared variable store threaded through one graph invocation.
// Keys keep their insertion order. The last write to a key wins and keys are never removed.
type ExecutionContext struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]interface{}
	runID  string
}

// NewExecutionContext creates a context seeded with the given values.
// Initial keys are inserted in sorted order so iteration is deterministic.
func NewExecutionContext(initial map[string]interface{}) *ExecutionContext {
	ec := &ExecutionContext{
		values: make(map[string]interface{}, len(initial)),
		runID:  uuid.New().String(),
	}

	keys := make([]string, 0, len(initial))
	for k := range initial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ec.keys = append(ec.keys, k)
		ec.values[k] = initial[k]
	}

	return ec
}

// ParseExecutionContext builds a context from a JSON object, e.g. `{"topic":"AI"}`.
// An empty string yields an empty context.
func ParseExecutionContext(data string) (*ExecutionContext, error) {
	if data == "" {
		return NewExecutionContext(nil), nil
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to parse execution context: %w", err)
	}

	return NewExecutionContext(values), nil
}

// RunID identifies this invocation in logs.
func (c *ExecutionContext) RunID() string {
	return c.runID
}

// Get returns the value stored under key and whether it was present.
func (c *ExecutionContext) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[key]
	return v, ok
}

// Value returns the value stored under key, or nil when absent.
func (c *ExecutionContext) Value(key string) interface{} {
	v, _ := c.Get(key)
	return v
}

// Set stores value under key.
func (c *ExecutionContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// RecordResult stores a tool's output under the tool's own name.
func (c *ExecutionContext) RecordResult(toolName string, value interface{}) {
	c.Set(toolName, value)
}

// Result returns the output recorded by the named tool.
func (c *ExecutionContext) Result(toolName string) (interface{}, bool) {
	return c.Get(toolName)
}

// Keys returns all keys in insertion order.
func (c *ExecutionContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// Len returns the number of keys.
func (c *ExecutionContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Snapshot returns a shallow copy of all values.
func (c *ExecutionContext) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent context with the same keys, values and run ID.
func (c *ExecutionContext) Clone() *ExecutionContext {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &ExecutionContext{
		keys:   make([]string, len(c.keys)),
		values: make(map[string]interface{}, len(c.values)),
		runID:  c.runID,
	}
	copy(clone.keys, c.keys)
	for k, v := range c.values {
		clone.values[k] = v
	}
	return clone
}
