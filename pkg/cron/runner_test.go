package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunnerMaxRuns(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	calls := 0

	runner, err := NewRunner(
		Schedule{Kind: ScheduleKindEvery, Every: 5 * time.Millisecond},
		func(ctx context.Context) error {
			calls++
			if calls == 2 {
				return errors.New("boom")
			}
			return nil
		},
		zerolog.Nop(),
		WithMaxRuns(3),
		WithOnEvent(func(e Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))

	assert.Equal(t, 3, calls)
	require.Len(t, events, 3)
	assert.Equal(t, StatusOK, events[0].Status)
	assert.Equal(t, StatusError, events[1].Status)
	assert.Equal(t, "boom", events[1].Error)
	assert.Equal(t, 3, events[2].Run)

	state := runner.State()
	assert.Equal(t, 3, state.Runs)
	assert.Equal(t, StatusOK, state.LastStatus)
	assert.Zero(t, state.ConsecutiveErrors)
	assert.NotNil(t, state.LastRunAt)
}

func TestRunnerAtRunsOnce(t *testing.T) {
	calls := 0
	runner, err := NewRunner(
		Schedule{Kind: ScheduleKindAt, At: time.Now().Add(-time.Minute)},
		func(ctx context.Context) error {
			calls++
			return errors.New("failed")
		},
		zerolog.Nop(),
	)
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))

	assert.Equal(t, 1, calls)
	state := runner.State()
	assert.Equal(t, StatusError, state.LastStatus)
	assert.Equal(t, 1, state.ConsecutiveErrors)
}

func TestRunnerCancel(t *testing.T) {
	runner, err := NewRunner(
		Schedule{Kind: ScheduleKindEvery, Every: time.Hour},
		func(ctx context.Context) error { return nil },
		zerolog.Nop(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.State().NextRunAt != nil }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Zero(t, runner.State().Runs)
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(Schedule{Kind: ScheduleKindEvery, Every: time.Second}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewRunner(Schedule{Kind: ScheduleKindCron, Expr: "bad"}, func(context.Context) error { return nil }, zerolog.Nop())
	assert.Error(t, err)
}
