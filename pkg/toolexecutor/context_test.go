package toolexecutor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionContext_GetSet(t *testing.T) {
	ec := NewExecutionContext(map[string]interface{}{"b": 2, "a": 1})

	assert.Equal(t, []string{"a", "b"}, ec.Keys())
	assert.NotEmpty(t, ec.RunID())

	ec.Set("c", "three")
	ec.Set("a", "overwritten")

	assert.Equal(t, []string{"a", "b", "c"}, ec.Keys())
	assert.Equal(t, "overwritten", ec.Value("a"))
	assert.Nil(t, ec.Value("missing"))

	_, ok := ec.Get("missing")
	assert.False(t, ok)
}

func TestExecutionContext_CloneIsIndependent(t *testing.T) {
	ec := NewExecutionContext(map[string]interface{}{"x": 1})
	clone := ec.Clone()

	clone.Set("x", 2)
	clone.Set("y", 3)

	assert.Equal(t, 1, ec.Value("x"))
	assert.Equal(t, 1, ec.Len())
	assert.Equal(t, 2, clone.Value("x"))
	assert.Equal(t, ec.RunID(), clone.RunID())
}

func TestExecutionContext_ConcurrentWrites(t *testing.T) {
	ec := NewExecutionContext(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ec.RecordResult("tool", i)
			_ = ec.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ec.Len())
}

func TestParseExecutionContext(t *testing.T) {
	ec, err := ParseExecutionContext(`{"topic":"Generative AI","count":3}`)
	require.NoError(t, err)
	assert.Equal(t, "Generative AI", ec.Value("topic"))
	assert.Equal(t, 3.0, ec.Value("count"))

	empty, err := ParseExecutionContext("")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = ParseExecutionContext("{broken")
	assert.Error(t, err)
}
