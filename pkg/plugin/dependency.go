package plugin

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
)

// DependencyResolver resolves module dependencies and determines load order
type DependencyResolver struct {
	logger zerolog.Logger
}

// NewDependencyResolver creates a new dependency resolver
func NewDependencyResolver(logger zerolog.Logger) *DependencyResolver {
	return &DependencyResolver{
		logger: logger.With().Str("component", "dependency-resolver").Logger(),
	}
}

// BuildDependencyGraph builds a dependency graph keyed by module name
func (r *DependencyResolver) BuildDependencyGraph(manifests []*ModuleManifest) *DependencyGraph {
	graph := &DependencyGraph{
		Nodes: make(map[string]*ModuleManifest),
		Edges: make(map[string][]string),
	}

	for _, manifest := range manifests {
		graph.Nodes[manifest.Module] = manifest
		graph.Edges[manifest.Module] = []string{}
	}

	for name, manifest := range graph.Nodes {
		for _, dep := range manifest.Dependencies {
			graph.Edges[name] = append(graph.Edges[name], dep.Module)
		}
	}

	return graph
}

// DetectCycles detects cycles in the dependency graph using DFS
func (r *DependencyResolver) DetectCycles(graph *DependencyGraph) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := []string{}

	var dfs func(string) bool
	dfs = func(name string) bool {
		visited[name] = true
		recStack[name] = true
		path = append(path, name)

		for _, dep := range graph.Edges[name] {
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			} else if recStack[dep] {
				for i, id := range path {
					if id == dep {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
				return true
			}
		}

		path = path[:len(path)-1]
		recStack[name] = false
		return false
	}

	for _, name := range sortedNodes(graph) {
		if !visited[name] {
			path = path[:0]
			recStack = make(map[string]bool)
			dfs(name)
		}
	}

	if len(cycles) > 0 {
		r.logger.Warn().Int("count", len(cycles)).Msg("Detected dependency cycles")
	}

	return cycles
}

// ValidateDependencies validates that all dependencies exist and versions are compatible
func (r *DependencyResolver) ValidateDependencies(graph *DependencyGraph) map[string]error {
	errors := make(map[string]error)

	for name, manifest := range graph.Nodes {
		for _, dep := range manifest.Dependencies {
			depManifest, exists := graph.Nodes[dep.Module]
			if !exists {
				errors[name] = fmt.Errorf("missing dependency: %s", dep.Module)
				r.logger.Error().
					Str("module", name).
					Str("dependency", dep.Module).
					Msg("Missing dependency")
				continue
			}

			if dep.Version != "" {
				if err := checkVersionCompatibility(depManifest.Version, dep.Version); err != nil {
					errors[name] = fmt.Errorf("incompatible dependency version for %s: %w", dep.Module, err)
					r.logger.Error().
						Str("module", name).
						Str("dependency", dep.Module).
						Str("required", dep.Version).
						Str("actual", depManifest.Version).
						Msg("Incompatible dependency version")
				}
			}
		}
	}

	return errors
}

// checkVersionCompatibility checks if a version satisfies a constraint
func checkVersionCompatibility(version, constraint string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid version %s: %w", version, err)
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %s: %w", constraint, err)
	}

	if !c.Check(v) {
		return fmt.Errorf("version %s does not satisfy constraint %s", version, constraint)
	}

	return nil
}

// TopologicalSort returns module names in load order (dependencies before dependents).
// Edges to unknown modules are ignored; ValidateDependencies reports them.
func (r *DependencyResolver) TopologicalSort(graph *DependencyGraph) ([]string, error) {
	if cycles := r.DetectCycles(graph); len(cycles) > 0 {
		return nil, fmt.Errorf("cannot sort graph with cycles: %v", cycles)
	}

	var sorted []string
	visited := make(map[string]bool)

	var visit func(string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true

		for _, dep := range graph.Edges[name] {
			if _, known := graph.Nodes[dep]; known {
				visit(dep)
			}
		}
		sorted = append(sorted, name)
	}

	for _, name := range sortedNodes(graph) {
		visit(name)
	}

	r.logger.Debug().
		Int("count", len(sorted)).
		Strs("order", sorted).
		Msg("Computed load order")

	return sorted, nil
}

func sortedNodes(graph *DependencyGraph) []string {
	names := make([]string, 0, len(graph.Nodes))
	for name := range graph.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
