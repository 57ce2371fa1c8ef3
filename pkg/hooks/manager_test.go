package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager([]Hook{{Script: "true"}}, zerolog.Nop())
	assert.ErrorContains(t, err, "event is required")

	_, err = NewManager([]Hook{{Event: EventRunStart, Script: "  "}}, zerolog.Nop())
	assert.ErrorContains(t, err, "script is required")

	m, err := NewManager(nil, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, m.Has(EventRunStart))
	assert.NoError(t, m.Trigger(context.Background(), EventRunStart, nil))
}

func TestTriggerExposesDataAsEnvironment(t *testing.T) {
	out := filepath.Join(t.TempDir(), "env.txt")

	m, err := NewManager([]Hook{{
		Event:  EventRunSuccess,
		Script: `echo "$TOOLFLOW_HOOK_EVENT:$TOOLFLOW_HOOK_DATA_RUN_ID:$TOOLFLOW_HOOK_DATA_RECIPE" > ` + out,
	}}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Trigger(context.Background(), EventRunSuccess, map[string]interface{}{
		"run-id": "r1",
		"recipe": "hello.yaml",
	}))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "run:success:r1:hello.yaml\n", string(content))
}

func TestTriggerWritesPayloadToStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "payload.json")

	m, err := NewManager([]Hook{{Event: EventRunError, Script: "cat > " + out}}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Trigger(context.Background(), EventRunError, map[string]interface{}{"output": "ERROR: boom"}))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"run:error","data":{"output":"ERROR: boom"}}`, string(content))
}

func TestTriggerJoinsErrors(t *testing.T) {
	m, err := NewManager([]Hook{
		{ID: "fail-1", Event: EventIndexDone, Script: "exit 2"},
		{ID: "fail-2", Event: EventIndexDone, Script: "echo nope; exit 3"},
	}, zerolog.Nop())
	require.NoError(t, err)

	err = m.Trigger(context.Background(), EventIndexDone, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook fail-1 failed")
	assert.Contains(t, err.Error(), "hook fail-2 failed")
	assert.Contains(t, err.Error(), "nope")
}

func TestTriggerTimeout(t *testing.T) {
	m, err := NewManager([]Hook{{
		ID:      "slow",
		Event:   EventRunStart,
		Script:  "sleep 1",
		Timeout: 30 * time.Millisecond,
	}}, zerolog.Nop())
	require.NoError(t, err)

	err = m.Trigger(context.Background(), EventRunStart, nil)
	require.Error(t, err)
	assert.True(t,
		strings.Contains(err.Error(), "deadline exceeded") || strings.Contains(err.Error(), "signal: killed"),
		"expected timeout-related error, got: %v", err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "RUN_ID", envKey("run-id"))
	assert.Equal(t, "A1_B", envKey(" a1.b "))
	assert.Equal(t, "UNKNOWN", envKey(""))
}
