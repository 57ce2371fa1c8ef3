package plugin

import (
	"fmt"
	"math"

	"github.com/harun/toolflow/pkg/toolexecutor"
)

// Helpers for constructors converting resolved argument values.

// StringArg converts a literal argument to text.
func StringArg(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case toolexecutor.Tool, []toolexecutor.Tool:
		return "", fmt.Errorf("expected text, got a tool")
	}
	return toolexecutor.ToJSONString(v), nil
}

// IntArg converts a literal argument to an int.
func IntArg(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%v is not an integer", val)
		}
		return int(val), nil
	case string:
		n, err := toolexecutor.Convert(val, toolexecutor.IntegerType)
		if err != nil {
			return 0, err
		}
		return n.(int), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

// FloatArg converts a literal argument to a float64.
func FloatArg(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := toolexecutor.Convert(val, toolexecutor.NumberType)
		if err != nil {
			return 0, err
		}
		return f.(float64), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

// BoolArg converts a literal argument to a bool.
func BoolArg(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := toolexecutor.Convert(val, toolexecutor.BooleanType)
		if err != nil {
			return false, err
		}
		return b.(bool), nil
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}

// StringsArg converts a literal list argument to strings.
func StringsArg(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		converted, err := toolexecutor.Convert(s, toolexecutor.ArrayOf(toolexecutor.StringType))
		if err != nil {
			return nil, err
		}
		return converted.([]string), nil
	}

	items, ok := toolexecutor.ToSlice(v)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, err := StringArg(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// ToolArg asserts an argument resolved to a tool.
func ToolArg(v interface{}) (toolexecutor.Tool, error) {
	if t, ok := v.(toolexecutor.Tool); ok && t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("expected tool, got %T", v)
}

// ToolsArg asserts an argument resolved to a list of tools.
func ToolsArg(v interface{}) ([]toolexecutor.Tool, error) {
	switch val := v.(type) {
	case []toolexecutor.Tool:
		return val, nil
	case toolexecutor.Tool:
		return []toolexecutor.Tool{val}, nil
	}
	return nil, fmt.Errorf("expected list of tools, got %T", v)
}
