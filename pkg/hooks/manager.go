package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Events fired by the CLI around recipe runs and indexing.
const (
	EventRunStart   = "run:start"
	EventRunSuccess = "run:success"
	EventRunError   = "run:error"
	EventIndexDone  = "index:complete"
)

const (
	envEventName     = "TOOLFLOW_HOOK_EVENT"
	envDataPrefix    = "TOOLFLOW_HOOK_DATA_"
	defaultHookShell = "/bin/sh"
)

// Hook is a shell script bound to a lifecycle event.
type Hook struct {
	ID      string
	Event   string
	Script  string
	Timeout time.Duration
}

// Manager runs the hooks registered for each event.
type Manager struct {
	logger  zerolog.Logger
	byEvent map[string][]Hook
}

// NewManager validates hooks and groups them by event.
func NewManager(hooks []Hook, logger zerolog.Logger) (*Manager, error) {
	m := &Manager{
		logger:  logger.With().Str("component", "hooks").Logger(),
		byEvent: make(map[string][]Hook),
	}

	for i, hook := range hooks {
		event := strings.TrimSpace(hook.Event)
		if event == "" {
			return nil, fmt.Errorf("hook %d: event is required", i)
		}
		if strings.TrimSpace(hook.Script) == "" {
			return nil, fmt.Errorf("hook %d: script is required for event %q", i, event)
		}
		if hook.ID == "" {
			hook.ID = fmt.Sprintf("%s#%d", event, i)
		}
		m.byEvent[event] = append(m.byEvent[event], hook)
	}

	return m, nil
}

// Has reports whether any hook listens for event.
func (m *Manager) Has(event string) bool {
	return m != nil && len(m.byEvent[event]) > 0
}

// Trigger runs every hook for event in registration order. Data is exposed as
// TOOLFLOW_HOOK_DATA_* variables and as a JSON document on stdin.
func (m *Manager) Trigger(ctx context.Context, event string, data map[string]interface{}) error {
	if !m.Has(event) {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return fmt.Errorf("failed to encode hook payload: %w", err)
	}
	env := environment(event, data)

	var errs []error
	for _, hook := range m.byEvent[event] {
		if err := m.execute(ctx, hook, env, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) execute(ctx context.Context, hook Hook, env []string, payload []byte) error {
	if hook.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hook.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, defaultHookShell, "-c", hook.Script)
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(payload)

	output, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(output))
	if err != nil {
		if text != "" {
			return fmt.Errorf("hook %s failed: %w: %s", hook.ID, err, text)
		}
		return fmt.Errorf("hook %s failed: %w", hook.ID, err)
	}

	m.logger.Debug().
		Str("event", hook.Event).
		Str("hook_id", hook.ID).
		Str("output", text).
		Dur("duration", time.Since(start)).
		Msg("Hook executed")
	return nil
}

func environment(event string, data map[string]interface{}) []string {
	env := append(os.Environ(), envEventName+"="+event)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		env = append(env, envDataPrefix+envKey(key)+"="+fmt.Sprint(data[key]))
	}
	return env
}

func envKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "UNKNOWN"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return '_'
	}, key)
}
