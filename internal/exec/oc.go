package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Executor executes oc commands
type Executor struct {
	ocPath string
}

// ExecuteResult contains the result of an oc execution
type ExecuteResult struct {
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Error    error
}

// Failed reports whether the command exited non-zero, could not be started,
// or wrote to stderr
func (r *ExecuteResult) Failed() bool {
	return r.Error != nil || r.ExitCode != 0 || r.Stderr != ""
}

// NewExecutor creates a new oc executor. An empty path looks oc up in PATH.
func NewExecutor(ocPath string) (*Executor, error) {
	if ocPath == "" {
		ocPath = "oc"
	}

	resolved, err := exec.LookPath(ocPath)
	if err != nil {
		return nil, fmt.Errorf("oc not found: %w", err)
	}

	return &Executor{
		ocPath: resolved,
	}, nil
}

// Path returns the resolved oc binary
func (e *Executor) Path() string {
	return e.ocPath
}

// Execute runs an oc command
func (e *Executor) Execute(ctx context.Context, args []string) *ExecuteResult {
	start := time.Now()
	result := &ExecuteResult{Args: args}

	cmd := exec.CommandContext(ctx, e.ocPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result
}
