package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// ManifestLoader loads and validates module manifests
type ManifestLoader struct {
	logger       zerolog.Logger
	schemaLoader gojsonschema.JSONLoader
}

// NewManifestLoader creates a new manifest loader
func NewManifestLoader(logger zerolog.Logger) *ManifestLoader {
	schemaLoader := gojsonschema.NewStringLoader(ManifestSchema)
	return &ManifestLoader{
		logger:       logger.With().Str("component", "manifest-loader").Logger(),
		schemaLoader: schemaLoader,
	}
}

// LoadManifest loads and validates a module manifest from a file
func (m *ManifestLoader) LoadManifest(path string) (*ModuleManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	manifest, err := m.ParseManifest(data)
	if err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("module", manifest.Module).
		Str("version", manifest.Version).
		Msg("Loaded manifest")

	return manifest, nil
}

// ParseManifest validates and decodes manifest JSON.
func (m *ManifestLoader) ParseManifest(data []byte) (*ModuleManifest, error) {
	if err := m.validateSchema(data); err != nil {
		return nil, fmt.Errorf("manifest schema validation failed: %w", err)
	}

	var manifest ModuleManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}

	if err := m.validateManifest(&manifest); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	return &manifest, nil
}

// validateSchema validates the manifest against the JSON schema
func (m *ManifestLoader) validateSchema(data []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(m.schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, err := range result.Errors() {
			msgs = append(msgs, err.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// validateManifest performs validation beyond the JSON schema: every method must
// produce a valid function descriptor.
func (m *ManifestLoader) validateManifest(manifest *ModuleManifest) error {
	for i, dep := range manifest.Dependencies {
		if dep.Module == manifest.Module {
			return fmt.Errorf("dependency %d: module cannot depend on itself", i)
		}
	}

	classes := make(map[string]bool, len(manifest.Classes))
	for _, class := range manifest.Classes {
		if classes[class.Name] {
			return fmt.Errorf("duplicate class %s", class.Name)
		}
		classes[class.Name] = true

		methods := make(map[string]bool, len(class.Methods))
		for _, method := range class.Methods {
			if methods[method.Name] {
				return fmt.Errorf("duplicate method %s.%s", class.Name, method.Name)
			}
			methods[method.Name] = true

			if _, err := method.Descriptor(); err != nil {
				return fmt.Errorf("method %s.%s: %w", class.Name, method.Name, err)
			}
		}
	}

	return nil
}
