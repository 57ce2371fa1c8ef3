package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrMethodNotFound is returned when no module exports the requested method.
var ErrMethodNotFound = errors.New("method not found")

type typeKey struct {
	module string
	class  string
}

type methodKey struct {
	module string
	class  string
	method string
}

// Registry maps type names to native tool constructors, and (module, type, method)
// triples to method factories.
type Registry struct {
	constructors map[typeKey][]Constructor
	methods      map[methodKey]MethodFactory
	dataDir      string
	mu           sync.RWMutex
}

// NewRegistry creates a registry. dataDir is searched when resolving module names.
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		constructors: make(map[typeKey][]Constructor),
		methods:      make(map[methodKey]MethodFactory),
		dataDir:      dataDir,
	}
}

// DataDir returns the plugin data directory.
func (r *Registry) DataDir() string {
	return r.dataDir
}

// RegisterConstructor adds constructors for a native tool type. Constructors are tried in
// registration order.
func (r *Registry) RegisterConstructor(module, class string, ctors ...Constructor) error {
	if class == "" {
		return fmt.Errorf("class name cannot be empty")
	}
	for _, c := range ctors {
		if c.New == nil {
			return fmt.Errorf("constructor for %s.%s has no function", module, class)
		}
		seen := make(map[string]bool, len(c.Args))
		for _, a := range c.Args {
			if a.Name == "" || seen[a.Name] {
				return fmt.Errorf("constructor for %s.%s has invalid argument %q", module, class, a.Name)
			}
			seen[a.Name] = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := typeKey{module: module, class: class}
	r.constructors[key] = append(r.constructors[key], ctors...)
	return nil
}

// Constructors returns the constructors registered for a native tool type, or nil when
// the type is not native.
func (r *Registry) Constructors(module, class string) []Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, candidate := range r.ModuleCandidates(module) {
		if ctors, ok := r.constructors[typeKey{module: candidate, class: class}]; ok {
			out := make([]Constructor, len(ctors))
			copy(out, ctors)
			return out
		}
	}
	return nil
}

// RegisterMethod registers a factory for a module method.
func (r *Registry) RegisterMethod(module, class, method string, factory MethodFactory) error {
	if module == "" || method == "" {
		return fmt.Errorf("module and method cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for %s.%s.%s cannot be nil", module, class, method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.methods[methodKey{module: module, class: class, method: method}] = factory
	return nil
}

// Method resolves a method binding. The module is looked up by its literal identifier,
// then under the data directory, then by base name without extension.
func (r *Registry) Method(module, class, method string) (MethodBinding, error) {
	r.mu.RLock()
	var factory MethodFactory
	for _, candidate := range r.ModuleCandidates(module) {
		if f, ok := r.methods[methodKey{module: candidate, class: class, method: method}]; ok {
			factory = f
			break
		}
	}
	r.mu.RUnlock()

	if factory == nil {
		return MethodBinding{}, fmt.Errorf("%w: %s %s.%s", ErrMethodNotFound, module, class, method)
	}

	binding, err := factory()
	if err != nil {
		return MethodBinding{}, fmt.Errorf("failed to bind %s %s.%s: %w", module, class, method, err)
	}
	if binding.Invoke == nil {
		return MethodBinding{}, fmt.Errorf("binding for %s %s.%s has no function", module, class, method)
	}
	return binding, nil
}

// ModuleCandidates lists the identifiers a module name is looked up under.
func (r *Registry) ModuleCandidates(module string) []string {
	candidates := []string{module}
	if module == "" {
		return candidates
	}

	if r.dataDir != "" && !filepath.IsAbs(module) {
		candidates = append(candidates, filepath.Join(r.dataDir, module))
	}

	base := filepath.Base(module)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base != module {
		candidates = append(candidates, base)
	}
	return candidates
}

// Entries lists everything registered, sorted.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []Entry
	for key, ctors := range r.constructors {
		for _, c := range ctors {
			args := make([]string, len(c.Args))
			for i, a := range c.Args {
				args[i] = a.Name
			}
			entries = append(entries, Entry{Kind: KindConstructor, Module: key.module, ClassName: key.class, Args: args})
		}
	}
	for key := range r.methods {
		entries = append(entries, Entry{Kind: KindMethod, Module: key.module, ClassName: key.class, Method: key.method})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].String() < entries[j].String()
	})
	return entries
}
