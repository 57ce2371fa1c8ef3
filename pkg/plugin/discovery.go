package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ManifestFile is the manifest file name inside a module directory.
const ManifestFile = "plugin.json"

// ModuleDiscovery scans directories to find modules
type ModuleDiscovery struct {
	logger zerolog.Logger
}

// NewModuleDiscovery creates a new module discovery instance
func NewModuleDiscovery(logger zerolog.Logger) *ModuleDiscovery {
	return &ModuleDiscovery{
		logger: logger.With().Str("component", "module-discovery").Logger(),
	}
}

// DiscoverModules scans the given directories in order for module directories.
func (d *ModuleDiscovery) DiscoverModules(dirs ...string) ([]DiscoveredModule, error) {
	var discovered []DiscoveredModule

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		modules, err := d.scanDirectory(dir)
		if err != nil {
			d.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to scan module directory")
			continue
		}
		discovered = append(discovered, modules...)
	}

	d.logger.Info().Int("count", len(discovered)).Msg("Module discovery completed")
	return discovered, nil
}

// scanDirectory scans a single directory for modules
func (d *ModuleDiscovery) scanDirectory(dir string) ([]DiscoveredModule, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			d.logger.Debug().Str("dir", dir).Msg("Directory does not exist, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var discovered []DiscoveredModule

	// Check each subdirectory for a manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		moduleDir := filepath.Join(dir, entry.Name())
		manifestPath := filepath.Join(moduleDir, ManifestFile)

		if _, err := os.Stat(manifestPath); err != nil {
			if os.IsNotExist(err) {
				d.logger.Debug().
					Str("dir", moduleDir).
					Msg("Directory does not contain plugin.json, skipping")
				continue
			}
			d.logger.Warn().
				Err(err).
				Str("dir", moduleDir).
				Msg("Failed to check for plugin.json")
			continue
		}

		module := DiscoveredModule{
			ID:           entry.Name(),
			Path:         moduleDir,
			ManifestPath: manifestPath,
		}

		discovered = append(discovered, module)
		d.logger.Debug().
			Str("id", module.ID).
			Str("path", module.Path).
			Msg("Discovered module")
	}

	return discovered, nil
}
