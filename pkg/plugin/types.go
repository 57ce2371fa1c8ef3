package plugin

import (
	"context"
	"fmt"

	"github.com/harun/toolflow/pkg/toolexecutor"
)

// ArgSpec declares one constructor argument of a native tool type.
type ArgSpec struct {
	Name       string
	Default    interface{}
	HasDefault bool
}

// Arg declares a required constructor argument.
func Arg(name string) ArgSpec {
	return ArgSpec{Name: name}
}

// OptionalArg declares a constructor argument with a default value.
func OptionalArg(name string, def interface{}) ArgSpec {
	return ArgSpec{Name: name, Default: def, HasDefault: true}
}

// Constructor builds a native tool from positional arguments matching Args.
// Argument values are literals, toolexecutor.Tool, or []toolexecutor.Tool.
type Constructor struct {
	Args []ArgSpec
	New  func(args []interface{}) (toolexecutor.Tool, error)
}

// MethodBinding is a callable method exposed by a module.
type MethodBinding struct {
	Descriptor toolexecutor.FunctionDescriptor
	Invoke     func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// MethodFactory produces a binding on demand.
type MethodFactory func() (MethodBinding, error)

// EntryKind distinguishes registry entries.
type EntryKind string

const (
	KindConstructor EntryKind = "constructor"
	KindMethod      EntryKind = "method"
)

// Entry describes one registered type or method, for listing.
type Entry struct {
	Kind      EntryKind `json:"kind"`
	Module    string    `json:"module"`
	ClassName string    `json:"classname"`
	Method    string    `json:"method,omitempty"`
	Args      []string  `json:"args,omitempty"`
}

func (e Entry) String() string {
	if e.Kind == KindMethod {
		return fmt.Sprintf("%s:%s.%s", e.Module, e.ClassName, e.Method)
	}
	return fmt.Sprintf("%s:%s%v", e.Module, e.ClassName, e.Args)
}

// ModuleManifest represents the plugin.json file of an external module.
type ModuleManifest struct {
	Module       string             `json:"module"`
	Version      string             `json:"version"`
	Description  string             `json:"description,omitempty"`
	Main         string             `json:"main"`
	Dependencies []ModuleDependency `json:"dependencies,omitempty"`
	Classes      []ClassSpec        `json:"classes"`
}

// ModuleDependency represents a dependency on another module.
type ModuleDependency struct {
	Module  string `json:"module"`
	Version string `json:"version,omitempty"` // Semver constraint
}

// ClassSpec groups the methods a module exports under one type name.
type ClassSpec struct {
	Name    string       `json:"name"`
	Methods []MethodSpec `json:"methods"`
}

// MethodSpec declares a method and its parameters.
type MethodSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  []ParameterSpec `json:"parameters,omitempty"`
}

// ParameterSpec declares a method parameter.
type ParameterSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Items       string   `json:"items,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Required    bool     `json:"required,omitempty"`
}

// Descriptor converts the method spec into a function descriptor.
func (m MethodSpec) Descriptor() (toolexecutor.FunctionDescriptor, error) {
	params := make([]toolexecutor.ParameterDescriptor, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		t, err := p.typeDescriptor()
		if err != nil {
			return toolexecutor.FunctionDescriptor{}, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		params = append(params, toolexecutor.ParameterDescriptor{
			Name:        p.Name,
			Description: p.Description,
			Required:    p.Required,
			Type:        t,
		})
	}
	return toolexecutor.NewFunctionDescriptor(m.Name, m.Description, params...)
}

func (p ParameterSpec) typeDescriptor() (toolexecutor.TypeDescriptor, error) {
	if len(p.Enum) > 0 {
		return toolexecutor.EnumOf(p.Enum...), nil
	}
	if p.Type == string(toolexecutor.KindArray) {
		item, err := scalarType(p.Items)
		if err != nil {
			return toolexecutor.TypeDescriptor{}, err
		}
		return toolexecutor.ArrayOf(item), nil
	}
	return scalarType(p.Type)
}

func scalarType(name string) (toolexecutor.TypeDescriptor, error) {
	switch toolexecutor.TypeKind(name) {
	case toolexecutor.KindString, "":
		return toolexecutor.StringType, nil
	case toolexecutor.KindNumber:
		return toolexecutor.NumberType, nil
	case toolexecutor.KindInteger:
		return toolexecutor.IntegerType, nil
	case toolexecutor.KindBoolean:
		return toolexecutor.BooleanType, nil
	case toolexecutor.KindObject:
		return toolexecutor.ObjectType, nil
	}
	return toolexecutor.TypeDescriptor{}, fmt.Errorf("unsupported type %q", name)
}

// DiscoveredModule represents a module directory found during discovery.
type DiscoveredModule struct {
	ID           string
	Path         string
	ManifestPath string
}

// LoadResult contains the results of loading modules.
type LoadResult struct {
	Loaded []string         // Successfully loaded module names
	Failed []string         // Failed module IDs
	Errors map[string]error // Errors by module ID
}

// DependencyGraph represents module dependencies.
type DependencyGraph struct {
	Nodes map[string]*ModuleManifest
	Edges map[string][]string // module -> dependencies
}
