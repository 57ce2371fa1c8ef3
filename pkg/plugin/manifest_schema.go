package plugin

// ManifestSchema is the JSON Schema for module manifest validation
const ManifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["module", "version", "main", "classes"],
  "properties": {
    "module": {
      "type": "string",
      "pattern": "^[A-Za-z0-9_.-]+$",
      "description": "Module identifier used by recipes"
    },
    "version": {
      "type": "string",
      "pattern": "^\\d+\\.\\d+\\.\\d+$",
      "description": "Semver version"
    },
    "description": {
      "type": "string"
    },
    "main": {
      "type": "string",
      "minLength": 1,
      "description": "Executable serving the module, relative to the module directory"
    },
    "dependencies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["module"],
        "properties": {
          "module": {
            "type": "string",
            "minLength": 1
          },
          "version": {
            "type": "string",
            "description": "Semver constraint (e.g., ^1.0.0)"
          }
        }
      }
    },
    "classes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "methods"],
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "methods": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "name": { "type": "string", "minLength": 1 },
                "description": { "type": "string" },
                "parameters": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["name"],
                    "properties": {
                      "name": { "type": "string", "minLength": 1 },
                      "description": { "type": "string" },
                      "type": {
                        "type": "string",
                        "enum": ["string", "number", "integer", "boolean", "array", "object", "enum"]
                      },
                      "items": {
                        "type": "string",
                        "enum": ["string", "number", "integer", "boolean", "object"]
                      },
                      "enum": {
                        "type": "array",
                        "items": { "type": "string" }
                      },
                      "required": { "type": "boolean" }
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`
