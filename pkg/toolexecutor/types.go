package toolexecutor

import (
	"fmt"
)

// TypeKind names the shape of a parameter value.
type TypeKind string

const (
	KindString  TypeKind = "string"
	KindNumber  TypeKind = "number"
	KindInteger TypeKind = "integer"
	KindBoolean TypeKind = "boolean"
	KindArray   TypeKind = "array"
	KindEnum    TypeKind = "enum"
	KindObject  TypeKind = "object"
)

// TypeDescriptor describes the expected type of a parameter.
// Item is set for arrays, Values for enums.
type TypeDescriptor struct {
	Kind   TypeKind
	Item   *TypeDescriptor
	Values []string
}

var (
	StringType  = TypeDescriptor{Kind: KindString}
	NumberType  = TypeDescriptor{Kind: KindNumber}
	IntegerType = TypeDescriptor{Kind: KindInteger}
	BooleanType = TypeDescriptor{Kind: KindBoolean}
	ObjectType  = TypeDescriptor{Kind: KindObject}
)

// ArrayOf describes an array whose elements have the given type.
func ArrayOf(item TypeDescriptor) TypeDescriptor {
	return TypeDescriptor{Kind: KindArray, Item: &item}
}

// EnumOf describes a string restricted to the given values.
func EnumOf(values ...string) TypeDescriptor {
	return TypeDescriptor{Kind: KindEnum, Values: append([]string(nil), values...)}
}

// JSONType returns the JSON Schema type name.
func (t TypeDescriptor) JSONType() string {
	if t.Kind == KindEnum {
		return string(KindString)
	}
	return string(t.Kind)
}

// IsTextual reports whether values of this type are carried as text.
func (t TypeDescriptor) IsTextual() bool {
	return t.Kind == KindString || t.Kind == KindEnum
}

// Schema returns the JSON Schema fragment for this type.
func (t TypeDescriptor) Schema() map[string]interface{} {
	schema := map[string]interface{}{
		"type": t.JSONType(),
	}

	switch t.Kind {
	case KindArray:
		item := StringType
		if t.Item != nil {
			item = *t.Item
		}
		schema["items"] = item.Schema()
	case KindEnum:
		values := make([]interface{}, len(t.Values))
		for i, v := range t.Values {
			values[i] = v
		}
		schema["enum"] = values
	}

	return schema
}

func (t TypeDescriptor) String() string {
	switch t.Kind {
	case KindArray:
		if t.Item != nil {
			return fmt.Sprintf("array<%s>", t.Item.String())
		}
		return "array"
	case KindEnum:
		return fmt.Sprintf("enum%v", t.Values)
	default:
		return string(t.Kind)
	}
}

// ParameterDescriptor describes one input of a tool.
type ParameterDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Required    bool           `json:"required"`
	Type        TypeDescriptor `json:"-"`
}

// FunctionDescriptor is a tool's full public contract.
type FunctionDescriptor struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  []ParameterDescriptor `json:"parameters"`
}

// NewFunctionDescriptor creates a descriptor and checks that parameter names are unique.
func NewFunctionDescriptor(name, description string, params ...ParameterDescriptor) (FunctionDescriptor, error) {
	fd := FunctionDescriptor{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
	if err := fd.Validate(); err != nil {
		return FunctionDescriptor{}, err
	}
	return fd, nil
}

// Validate checks the descriptor invariants.
func (fd FunctionDescriptor) Validate() error {
	if fd.Name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	seen := make(map[string]bool, len(fd.Parameters))
	for _, p := range fd.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty for %s", fd.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %s for %s", p.Name, fd.Name)
		}
		seen[p.Name] = true

		if p.Type.Kind == KindEnum && len(p.Type.Values) == 0 {
			return fmt.Errorf("enum parameter %s has no values", p.Name)
		}
	}

	return nil
}

// Parameter looks up a parameter by name.
func (fd FunctionDescriptor) Parameter(name string) (ParameterDescriptor, bool) {
	for _, p := range fd.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDescriptor{}, false
}
