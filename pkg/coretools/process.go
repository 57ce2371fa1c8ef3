package coretools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/harun/toolflow/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

// ProcessInput is the parameter holding the command-line arguments.
const ProcessInput = "arguments"

// ProcessExecutor runs a configured executable and returns its standard output. Anything
// written to standard error fails the tool.
type ProcessExecutor struct {
	*toolexecutor.FunctionTool
	path       string
	workingDir string
	timeout    time.Duration
}

// NewProcessExecutor creates an executor for path. An empty workingDir uses the temp directory.
func NewProcessExecutor(path, workingDir string) (*ProcessExecutor, error) {
	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if path == "" || err != nil || info.IsDir() {
		return nil, fmt.Errorf("not a valid executable path: %q", path)
	}
	if strings.TrimSpace(workingDir) == "" {
		workingDir = os.TempDir()
	}

	p := &ProcessExecutor{path: path, workingDir: filepath.Clean(workingDir)}
	p.FunctionTool = toolexecutor.NewFunctionTool("ProcessExecutor",
		"Executes a configured process with the given arguments, waits until it completes and returns its standard output as text", p)
	return p, nil
}

// WithTimeout bounds each run; zero means no limit.
func (p *ProcessExecutor) WithTimeout(timeout time.Duration) *ProcessExecutor {
	p.timeout = timeout
	return p
}

// WithName renames the tool.
func (p *ProcessExecutor) WithName(name string) *ProcessExecutor {
	p.FunctionTool.WithName(name)
	return p
}

// WithDescription replaces the description.
func (p *ProcessExecutor) WithDescription(description string) *ProcessExecutor {
	p.FunctionTool.WithDescription(description)
	return p
}

// Parameters implements toolexecutor.Core.
func (p *ProcessExecutor) Parameters() []toolexecutor.ParameterDescriptor {
	return []toolexecutor.ParameterDescriptor{{
		Name:        ProcessInput,
		Description: "Full set of arguments to execute the process",
		Required:    true,
		Type:        toolexecutor.StringType,
	}}
}

// ExecuteCore implements toolexecutor.Core.
func (p *ProcessExecutor) ExecuteCore(ctx context.Context, ec *toolexecutor.ExecutionContext) (toolexecutor.Result, error) {
	args, err := SplitArguments(toolexecutor.ToJSONString(ec.Value(ProcessInput)))
	if err != nil {
		return toolexecutor.Result{}, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log.Info().
		Str("tool", p.Name()).
		Str("command", filepath.Base(p.path)).
		Strs("args", args).
		Msg("Running process")

	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.Dir = p.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if stderr.Len() > 0 {
		return toolexecutor.Result{Success: false, Output: stderr.String()}, nil
	}
	if runErr != nil {
		return toolexecutor.Result{}, fmt.Errorf("process %s: %w", filepath.Base(p.path), runErr)
	}
	return toolexecutor.Succeeded(stdout.String()), nil
}

// SplitArguments splits a command line on whitespace. Single or double quotes group words
// and a backslash escapes the next character outside single quotes.
func SplitArguments(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in arguments", quote)
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash in arguments")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
