package graph

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var recipeSchema = gojsonschema.NewStringLoader(RecipeSchema)

// Parse decodes a JSON or YAML recipe, validates it against RecipeSchema and converts it
// into a definition tree.
func Parse(doc []byte) (*ToolDefinition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}

	data, ok := normalize(raw).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("recipe must be a mapping")
	}

	if err := validate(data); err != nil {
		return nil, err
	}

	return FromMap(data)
}

// ParseFile reads and parses a recipe file.
func ParseFile(path string) (*ToolDefinition, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	return Parse(doc)
}

func validate(data map[string]interface{}) error {
	result, err := gojsonschema.Validate(recipeSchema, gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("recipe schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid recipe: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// normalize converts YAML-decoded values into the shapes JSON decoding produces.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	}
	return v
}
