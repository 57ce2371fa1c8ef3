package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harun/toolflow/pkg/cron"
	"github.com/harun/toolflow/pkg/hooks"
	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/spf13/cobra"
)

var (
	runContext     string
	runSet         []string
	runSchedule    string
	runMaxRuns     int
	runDumpContext bool
)

var runCmd = &cobra.Command{
	Use:   "run <recipe>",
	Short: "Build a recipe and execute it",
	Long: `Build the tool graph described by a JSON or YAML recipe and execute it once
against an execution context. The tool output is written to stdout.

The initial context comes from --context (a JSON object, or @file to read one)
and --set key=value pairs; values that parse as JSON keep their type.

With --schedule the recipe runs repeatedly, each time with a fresh context:
  --schedule "@every 10m"
  --schedule "0 9 * * 1-5"
  --schedule 2025-01-01T09:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runContext, "context", "", "initial context as a JSON object, or @path to a JSON file")
	runCmd.Flags().StringArrayVar(&runSet, "set", nil, "set a context value (key=value), repeatable")
	runCmd.Flags().StringVar(&runSchedule, "schedule", "", "run on a schedule instead of once")
	runCmd.Flags().IntVar(&runMaxRuns, "runs", 0, "stop after this many scheduled runs (0 = unbounded)")
	runCmd.Flags().BoolVar(&runDumpContext, "dump-context", false, "print the final execution context as JSON to stderr")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	initial, err := initialContext(runContext, runSet)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tool, err := a.builder().BuildFile(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	execute := func(ctx context.Context) error {
		// the deadline reaches collaborator calls only; the graph itself never checks ctx
		if a.cfg.Engine.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.Engine.Timeout)*time.Second)
			defer cancel()
		}

		ec := toolexecutor.NewExecutionContext(cloneValues(initial))
		event := map[string]interface{}{"recipe": args[0], "tool": tool.Name(), "run_id": ec.RunID()}
		a.trigger(ctx, hooks.EventRunStart, event)

		start := time.Now()
		output := tool.Execute(ctx, ec)
		fmt.Fprintln(cmd.OutOrStdout(), output)

		event["output"] = output
		event["duration_ms"] = time.Since(start).Milliseconds()
		if toolexecutor.IsError(output) {
			a.trigger(ctx, hooks.EventRunError, event)
		} else {
			a.trigger(ctx, hooks.EventRunSuccess, event)
		}

		if runDumpContext {
			if err := dumpContext(cmd, ec); err != nil {
				return err
			}
		}
		if toolexecutor.IsError(output) {
			return fmt.Errorf("recipe %s failed (run id %s)", tool.Name(), ec.RunID())
		}
		return nil
	}

	if runSchedule == "" {
		return execute(ctx)
	}

	schedule, err := cron.ParseSchedule(runSchedule)
	if err != nil {
		return err
	}
	runner, err := cron.NewRunner(schedule, execute, a.log.Component("run"), cron.WithMaxRuns(runMaxRuns))
	if err != nil {
		return err
	}
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// initialContext merges the --context object and --set pairs; --set wins.
func initialContext(raw string, pairs []string) (map[string]interface{}, error) {
	values := make(map[string]interface{})

	if path, ok := strings.CutPrefix(raw, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read context file: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, fmt.Errorf("context must be a JSON object: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		var parsed interface{}
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			values[key] = parsed
		} else {
			values[key] = value
		}
	}

	return values, nil
}

func cloneValues(values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func dumpContext(cmd *cobra.Command, ec *toolexecutor.ExecutionContext) error {
	data, err := json.MarshalIndent(ec.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode context: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), string(data))
	return nil
}
