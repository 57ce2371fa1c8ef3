package plugin

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-plugin"
	"github.com/rs/zerolog"
)

// ModuleLoader starts module processes on first use and keeps them running until Close.
type ModuleLoader struct {
	logger  zerolog.Logger
	mu      sync.Mutex
	clients map[string]*plugin.Client
	modules map[string]Module
}

// NewModuleLoader creates a new module loader
func NewModuleLoader(logger zerolog.Logger) *ModuleLoader {
	return &ModuleLoader{
		logger:  logger.With().Str("component", "module-loader").Logger(),
		clients: make(map[string]*plugin.Client),
		modules: make(map[string]Module),
	}
}

// Connect returns the running module process for name, starting executable if needed.
func (l *ModuleLoader) Connect(name, executable string) (Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.modules[name]; ok {
		return m, nil
	}

	if _, err := os.Stat(executable); err != nil {
		return nil, fmt.Errorf("module executable not found: %s", executable)
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command(executable),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to module: %w", err)
	}

	raw, err := rpcClient.Dispense(dispenseName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense module: %w", err)
	}

	module, ok := raw.(Module)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("unexpected module type %T", raw)
	}

	l.clients[name] = client
	l.modules[name] = module

	l.logger.Info().Str("module", name).Str("executable", executable).Msg("Module process started")

	return module, nil
}

// Running lists the names of started modules.
func (l *ModuleLoader) Running() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.modules))
	for name := range l.modules {
		names = append(names, name)
	}
	return names
}

// Close stops every started module process.
func (l *ModuleLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for name, client := range l.clients {
		client.Kill()
		l.logger.Debug().Str("module", name).Msg("Module process stopped")
	}
	l.clients = make(map[string]*plugin.Client)
	l.modules = make(map[string]Module)
}
