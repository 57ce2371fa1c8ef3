package graph

// RecipeSchema is the JSON Schema for tool graph recipes.
const RecipeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$ref": "#/definitions/tool",
  "definitions": {
    "tool": {
      "type": "object",
      "required": ["module"],
      "properties": {
        "module": {
          "type": "string",
          "minLength": 1,
          "description": "Module providing the tool type or method"
        },
        "classname": {
          "type": ["string", "null"],
          "description": "Type within the module"
        },
        "method": {
          "type": ["string", "null"],
          "description": "Method to adapt when the type is not a tool"
        },
        "parameters": {
          "type": ["object", "null"],
          "additionalProperties": { "$ref": "#/definitions/value" }
        }
      }
    },
    "value": {
      "anyOf": [
        { "type": ["string", "number", "integer", "boolean", "null"] },
        { "$ref": "#/definitions/tool" },
        { "type": "array" }
      ]
    }
  }
}`
