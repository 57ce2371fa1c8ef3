package plugin

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Runtime discovers external modules and registers their methods in a Registry.
type Runtime struct {
	logger             zerolog.Logger
	discovery          *ModuleDiscovery
	manifestLoader     *ManifestLoader
	dependencyResolver *DependencyResolver
	loader             *ModuleLoader
	registry           *Registry
}

// NewRuntime creates a module runtime that registers into registry.
func NewRuntime(logger zerolog.Logger, registry *Registry) *Runtime {
	return &Runtime{
		logger:             logger.With().Str("component", "module-runtime").Logger(),
		discovery:          NewModuleDiscovery(logger),
		manifestLoader:     NewManifestLoader(logger),
		dependencyResolver: NewDependencyResolver(logger),
		loader:             NewModuleLoader(logger),
		registry:           registry,
	}
}

// Initialize discovers modules under the registry's data directory and any extra
// directories, and registers every method they declare. Processes start on first call.
func (r *Runtime) Initialize(extraDirs ...string) (*LoadResult, error) {
	r.logger.Info().Msg("Initializing module runtime")

	result := &LoadResult{
		Loaded: []string{},
		Failed: []string{},
		Errors: make(map[string]error),
	}

	dirs := append([]string{r.registry.DataDir()}, extraDirs...)
	discovered, err := r.discovery.DiscoverModules(dirs...)
	if err != nil {
		return nil, fmt.Errorf("module discovery failed: %w", err)
	}

	if len(discovered) == 0 {
		r.logger.Info().Msg("No modules discovered")
		return result, nil
	}

	manifests := make([]*ModuleManifest, 0, len(discovered))
	locations := make(map[string]DiscoveredModule, len(discovered))
	for _, module := range discovered {
		manifest, err := r.manifestLoader.LoadManifest(module.ManifestPath)
		if err != nil {
			r.logger.Error().Err(err).Str("module", module.ID).Msg("Failed to load manifest")
			result.fail(module.ID, err)
			continue
		}
		if _, dup := locations[manifest.Module]; dup {
			result.fail(module.ID, fmt.Errorf("module %s is declared more than once", manifest.Module))
			continue
		}
		manifests = append(manifests, manifest)
		locations[manifest.Module] = module
	}

	graph := r.dependencyResolver.BuildDependencyGraph(manifests)

	for _, cycle := range r.dependencyResolver.DetectCycles(graph) {
		for _, name := range cycle {
			result.fail(name, fmt.Errorf("module is part of dependency cycle: %v", cycle))
			delete(graph.Nodes, name)
			delete(graph.Edges, name)
		}
	}

	for name, err := range r.dependencyResolver.ValidateDependencies(graph) {
		r.logger.Error().Err(err).Str("module", name).Msg("Dependency validation failed")
		result.fail(name, err)
	}

	loadOrder, err := r.dependencyResolver.TopologicalSort(graph)
	if err != nil {
		return nil, fmt.Errorf("failed to determine load order: %w", err)
	}

	for _, name := range loadOrder {
		if _, failed := result.Errors[name]; failed {
			continue
		}
		if failedDependency(graph.Nodes[name], result) {
			result.fail(name, fmt.Errorf("a dependency of %s failed to load", name))
			continue
		}

		if err := r.registerModule(graph.Nodes[name], locations[name]); err != nil {
			r.logger.Error().Err(err).Str("module", name).Msg("Failed to register module")
			result.fail(name, err)
			continue
		}

		result.Loaded = append(result.Loaded, name)
		r.logger.Info().Str("module", name).Msg("Module registered")
	}

	r.logger.Info().
		Int("loaded", len(result.Loaded)).
		Int("failed", len(result.Failed)).
		Msg("Module runtime initialization complete")

	return result, nil
}

func failedDependency(manifest *ModuleManifest, result *LoadResult) bool {
	for _, dep := range manifest.Dependencies {
		if _, failed := result.Errors[dep.Module]; failed {
			return true
		}
	}
	return false
}

func (res *LoadResult) fail(id string, err error) {
	if _, exists := res.Errors[id]; !exists {
		res.Failed = append(res.Failed, id)
	}
	res.Errors[id] = err
}

// registerModule registers the manifest's methods under the module name and the
// module directory, so recipes may reference either.
func (r *Runtime) registerModule(manifest *ModuleManifest, location DiscoveredModule) error {
	executable := filepath.Join(location.Path, manifest.Main)
	identifiers := []string{manifest.Module, location.Path}

	for _, class := range manifest.Classes {
		for _, method := range class.Methods {
			descriptor, err := method.Descriptor()
			if err != nil {
				return fmt.Errorf("method %s.%s: %w", class.Name, method.Name, err)
			}

			className, methodName := class.Name, method.Name
			factory := func() (MethodBinding, error) {
				return MethodBinding{
					Descriptor: descriptor,
					Invoke: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
						module, err := r.loader.Connect(manifest.Module, executable)
						if err != nil {
							return nil, err
						}
						return module.Invoke(ctx, className, methodName, args)
					},
				}, nil
			}

			for _, id := range identifiers {
				if err := r.registry.RegisterMethod(id, className, methodName, factory); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Shutdown stops all module processes.
func (r *Runtime) Shutdown() {
	r.logger.Info().Msg("Shutting down module runtime")
	r.loader.Close()
}
