package toolexecutor

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema describes the function's parameters as a JSON Schema object, the shape language
// models expect for function calling.
func (fd FunctionDescriptor) JSONSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(fd.Parameters))
	required := []string{}

	for _, p := range fd.Parameters {
		paramSchema := p.Type.Schema()
		if p.Description != "" {
			paramSchema["description"] = p.Description
		}
		properties[p.Name] = paramSchema

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// CompileSchema compiles the parameter schema for argument validation.
func (fd FunctionDescriptor) CompileSchema() (*gojsonschema.Schema, error) {
	schemaLoader := gojsonschema.NewGoLoader(fd.JSONSchema())
	return gojsonschema.NewSchema(schemaLoader)
}

// validateArguments validates arguments, e.g. from a model function call, against a schema.
func validateArguments(schema *gojsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}

	if !result.Valid() {
		errors := []string{}
		for _, err := range result.Errors() {
			errors = append(errors, err.String())
		}
		return fmt.Errorf("validation errors: %v", errors)
	}

	return nil
}
