package orchestrator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/harun/toolflow/internal/observability"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MapReduce runs the mapper once per element of its array inputs, then hands the ordered
// outputs to the combiner.
type MapReduce struct {
	*toolexecutor.FunctionTool
	mapper   toolexecutor.Tool
	combiner toolexecutor.Tool
	workers  int
}

// NewMapReduce creates a map/reduce tool named "MapReduce". A nil combiner defaults to
// CombineTool.
func NewMapReduce(mapper, combiner toolexecutor.Tool) (*MapReduce, error) {
	if mapper == nil {
		return nil, fmt.Errorf("mapper is required")
	}
	if combiner == nil {
		combiner = NewCombineTool()
	}
	if len(combiner.Descriptor().Parameters) == 0 {
		return nil, fmt.Errorf("combiner %s has no parameters", combiner.Name())
	}

	m := &MapReduce{
		mapper:   mapper,
		combiner: combiner,
		workers:  runtime.GOMAXPROCS(0),
	}
	m.FunctionTool = toolexecutor.NewFunctionTool("MapReduce", "Applies a tool to every item of its inputs and combines the results", m)
	return m, nil
}

// WithWorkers bounds how many mapper calls run at once. Values below 1 are ignored.
func (m *MapReduce) WithWorkers(n int) *MapReduce {
	if n > 0 {
		m.workers = n
	}
	return m
}

// WithName renames the tool.
func (m *MapReduce) WithName(name string) *MapReduce {
	m.FunctionTool.WithName(name)
	return m
}

// WithDescription replaces the description.
func (m *MapReduce) WithDescription(description string) *MapReduce {
	m.FunctionTool.WithDescription(description)
	return m
}

// Parameters are the mapper's parameters, each taking an array of values.
func (m *MapReduce) Parameters() []toolexecutor.ParameterDescriptor {
	mapped := m.mapper.Descriptor().Parameters
	params := make([]toolexecutor.ParameterDescriptor, len(mapped))
	for i, p := range mapped {
		params[i] = toolexecutor.ParameterDescriptor{
			Name:        p.Name,
			Description: p.Description,
			Required:    p.Required,
			Type:        toolexecutor.ArrayOf(p.Type),
		}
	}
	return params
}

// ExecuteCore implements toolexecutor.Core.
func (m *MapReduce) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	inputs, n, err := m.collectInputs(ec)
	if err != nil {
		return toolexecutor.Result{}, err
	}

	outputs := make([]string, n)

	var g errgroup.Group
	g.SetLimit(m.workers)

	for i := 0; i < n; i++ {
		item := ec.Clone()
		for name, values := range inputs {
			item.Set(name, values[i])
		}

		g.Go(func() error {
			outputs[i] = m.mapper.Execute(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	observability.RecordMapReduceItems(m.Name(), n)
	log.Debug().Str("tool", m.Name()).Int("items", n).Msg("Mapped all items")

	reduce := ec.Clone()
	reduce.Set(m.combiner.Descriptor().Parameters[0].Name, outputs)

	output := m.combiner.Execute(ctx, reduce)
	if toolexecutor.IsError(output) {
		return toolexecutor.Result{}, fmt.Errorf("combiner %s failed", m.combiner.Name())
	}
	return toolexecutor.Succeeded(output), nil
}

// collectInputs returns the array bound to each present mapper parameter and their common length.
func (m *MapReduce) collectInputs(ec *toolexecutor.ExecutionContext) (map[string][]interface{}, int, error) {
	inputs := make(map[string][]interface{})
	n := -1

	for _, p := range m.mapper.Descriptor().Parameters {
		raw := ec.Value(p.Name)
		if raw == nil {
			continue
		}

		values, ok := toolexecutor.ToSlice(raw)
		if !ok {
			return nil, 0, fmt.Errorf("parameter %s must be an array, got %T", p.Name, raw)
		}

		if n >= 0 && len(values) != n {
			return nil, 0, fmt.Errorf("parameter %s has %d items, expected %d", p.Name, len(values), n)
		}
		n = len(values)
		inputs[p.Name] = values
	}

	if n < 0 {
		n = 0
	}
	return inputs, n, nil
}
