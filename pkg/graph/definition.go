package graph

import (
	"fmt"
	"sort"
)

// ValueKind tags a parameter value in a tool definition.
type ValueKind int

const (
	// KindLiteral is a plain value passed through unchanged.
	KindLiteral ValueKind = iota
	// KindToolRef is a nested tool definition.
	KindToolRef
	// KindToolRefList is a list of nested tool definitions.
	KindToolRefList
)

func (k ValueKind) String() string {
	switch k {
	case KindToolRef:
		return "tool"
	case KindToolRefList:
		return "tools"
	default:
		return "literal"
	}
}

// Value is a parameter value: exactly one of Literal, Ref or Refs is meaningful, per Kind.
type Value struct {
	Kind    ValueKind
	Literal interface{}
	Ref     *ToolDefinition
	Refs    []*ToolDefinition
}

// LiteralValue wraps a plain value.
func LiteralValue(v interface{}) Value {
	return Value{Kind: KindLiteral, Literal: v}
}

// RefValue wraps a nested definition.
func RefValue(def *ToolDefinition) Value {
	return Value{Kind: KindToolRef, Ref: def}
}

// RefListValue wraps a list of nested definitions.
func RefListValue(defs ...*ToolDefinition) Value {
	return Value{Kind: KindToolRefList, Refs: defs}
}

// ToolDefinition is a data-only recipe for constructing one tool.
type ToolDefinition struct {
	Module     string
	ClassName  string
	Method     string
	Parameters map[string]Value
}

func (d *ToolDefinition) String() string {
	if d.Method != "" {
		return fmt.Sprintf("%s:%s.%s", d.Module, d.ClassName, d.Method)
	}
	return fmt.Sprintf("%s:%s", d.Module, d.ClassName)
}

// FromMap converts a decoded document into a definition. Nested mappings under
// parameters become tool references; lists made only of mappings become reference lists.
func FromMap(data map[string]interface{}) (*ToolDefinition, error) {
	module, ok := data["module"].(string)
	if !ok || module == "" {
		return nil, fmt.Errorf("tool definition requires a module")
	}

	def := &ToolDefinition{
		Module:     module,
		Parameters: make(map[string]Value),
	}
	if def.ClassName, ok = optionalString(data, "classname"); !ok {
		return nil, fmt.Errorf("%s: classname must be a string", module)
	}
	if def.Method, ok = optionalString(data, "method"); !ok {
		return nil, fmt.Errorf("%s: method must be a string", module)
	}

	raw, present := data["parameters"]
	if !present || raw == nil {
		return def, nil
	}
	params, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: parameters must be a mapping", module)
	}

	for name, v := range params {
		value, err := parseValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %s: %w", def, name, err)
		}
		def.Parameters[name] = value
	}

	return def, nil
}

func parseValue(v interface{}) (Value, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		nested, err := FromMap(val)
		if err != nil {
			return Value{}, err
		}
		return RefValue(nested), nil

	case []interface{}:
		if len(val) == 0 {
			return LiteralValue(val), nil
		}
		defs := make([]*ToolDefinition, 0, len(val))
		for _, item := range val {
			m, ok := item.(map[string]interface{})
			if !ok {
				return LiteralValue(val), nil
			}
			nested, err := FromMap(m)
			if err != nil {
				return Value{}, err
			}
			defs = append(defs, nested)
		}
		return RefListValue(defs...), nil
	}

	return LiteralValue(v), nil
}

func optionalString(data map[string]interface{}, key string) (string, bool) {
	v, present := data[key]
	if !present || v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}

// ParameterNames returns the definition's parameter names, sorted.
func (d *ToolDefinition) ParameterNames() []string {
	names := make([]string, 0, len(d.Parameters))
	for name := range d.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
