package execute

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// FailureKind classifies why a command did not succeed.
type FailureKind string

const (
	// FailureNone means the command ran to completion with exit code 0.
	FailureNone FailureKind = ""

	// FailureLaunch means the process could not be started at all,
	// typically because the binary is missing or not executable.
	FailureLaunch FailureKind = "launch_failure"

	// FailureTimeout means the process was killed after exceeding its
	// time budget.
	FailureTimeout FailureKind = "timeout"

	// FailureNonZeroExit means the process ran to completion but signaled
	// failure through its exit code. This is a normal, reportable outcome,
	// never an error to propagate.
	FailureNonZeroExit FailureKind = "non_zero_exit"
)

// Spec describes a single command invocation.
type Spec struct {
	// Program is the binary to run.
	Program string

	// Args are the program arguments, exec-style (not shell-parsed).
	Args []string

	// Env is appended to the inherited environment, "KEY=value" entries.
	Env []string

	// Dir is the working directory. Empty means the caller's.
	Dir string

	// Timeout is the time budget for the call. Zero means no limit.
	Timeout time.Duration
}

// Result is the captured outcome of one command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Failure  FailureKind

	// Err carries the underlying launch or timeout error for reporting.
	// It is nil for FailureNone and FailureNonZeroExit.
	Err error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Failure == FailureNone
}

// Runner runs a single command to completion. Implementations spawn
// exactly one external process per call and have no retry logic of their
// own; retries and sequencing belong to the layers above.
type Runner interface {
	Run(ctx context.Context, spec Spec) Result
}

// Executor is the Runner backed by os/exec.
type Executor struct{}

// NewExecutor creates a new process executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Run executes the spec, killing the process if it exceeds the timeout.
// A non-zero exit is returned as data, not as an error.
func (e *Executor) Run(ctx context.Context, spec Spec) Result {
	start := time.Now()

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		result.ExitCode = 0

	case runCtx.Err() != nil:
		// The process was killed because the budget elapsed (or the
		// surrounding run was cancelled, which callers treat the same way).
		result.ExitCode = -1
		result.Failure = FailureTimeout
		result.Err = runCtx.Err()

	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			result.Failure = FailureNonZeroExit
		} else {
			result.ExitCode = -1
			result.Failure = FailureLaunch
			result.Err = err
		}
	}

	return result
}
