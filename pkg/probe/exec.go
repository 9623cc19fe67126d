package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/obkit/obup/pkg/execute"
)

// ExecChecker reports a target ready once a probe command exits zero. An
// optional predicate over the captured stdout can tighten the ready
// condition beyond the exit code.
type ExecChecker struct {
	// Spec is the probe command to run on every poll.
	Spec execute.Spec

	// Expect, when non-nil, must accept the captured stdout for the
	// check to count as ready.
	Expect func(stdout string) error

	runner execute.Runner
}

// NewExecChecker creates a new exec readiness checker
func NewExecChecker(runner execute.Runner, spec execute.Spec) *ExecChecker {
	if spec.Timeout == 0 {
		spec.Timeout = 10 * time.Second
	}
	return &ExecChecker{
		Spec:   spec,
		runner: runner,
	}
}

// Check performs the exec readiness check
func (e *ExecChecker) Check(ctx context.Context) Result {
	start := time.Now()

	if e.Spec.Program == "" {
		return Result{
			Ready:     false,
			Message:   "no probe command specified",
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	res := e.runner.Run(ctx, e.Spec)
	if !res.OK() {
		msg := fmt.Sprintf("probe command failed (%s, exit %d)", res.Failure, res.ExitCode)
		if res.Stderr != "" {
			msg = fmt.Sprintf("%s: %s", msg, excerpt(res.Stderr))
		}
		return Result{
			Ready:     false,
			Message:   msg,
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	if e.Expect != nil {
		if err := e.Expect(res.Stdout); err != nil {
			return Result{
				Ready:     false,
				Message:   fmt.Sprintf("probe output rejected: %v", err),
				CheckedAt: start,
				Duration:  time.Since(start),
			}
		}
	}

	return Result{
		Ready:     true,
		Message:   fmt.Sprintf("probe command succeeded: %s", excerpt(res.Stdout)),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the readiness check type
func (e *ExecChecker) Type() CheckType {
	return CheckTypeExec
}

// WithExpect sets the stdout predicate
func (e *ExecChecker) WithExpect(fn func(stdout string) error) *ExecChecker {
	e.Expect = fn
	return e
}

// excerpt truncates probe output for log and report messages
func excerpt(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
