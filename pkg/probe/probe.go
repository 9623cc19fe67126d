package probe

import (
	"context"
	"time"
)

// CheckType represents the type of readiness check
type CheckType string

const (
	CheckTypeTCP   CheckType = "tcp"
	CheckTypeExec  CheckType = "exec"
	CheckTypeQuery CheckType = "query"
)

// Result represents the outcome of a single readiness check
type Result struct {
	Ready     bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all readiness checkers must implement
type Checker interface {
	// Check performs one readiness check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of readiness check
	Type() CheckType
}

// Spec describes how to wait for an external target to become ready:
// which checker to poll, how often, and for how long.
type Spec struct {
	// Target is a short human-readable name for logs and reports.
	Target string

	// Checker issues the probe action.
	Checker Checker

	// Interval is the fixed time between polls.
	Interval time.Duration

	// Timeout bounds the whole wait. Bring-up of an external service has
	// no reliable "done" signal, so a hard deadline is the only robust
	// contract.
	Timeout time.Duration
}

// Outcome is the terminal state of a wait.
type Outcome string

const (
	Ready    Outcome = "ready"
	TimedOut Outcome = "timed_out"
)

// Wait records how a WaitUntilReady call ended.
type Wait struct {
	Outcome  Outcome
	Attempts int
	Last     Result
	Elapsed  time.Duration
}

// WaitUntilReady polls spec.Checker until it reports ready or the timeout
// elapses. The first check fires immediately, so an already-ready target
// costs well under one interval. Cancelling ctx aborts an in-progress wait
// without leaking the polling loop; a cancelled wait reports TimedOut.
func WaitUntilReady(ctx context.Context, spec Spec) Wait {
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	interval := spec.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wait Wait
	for {
		wait.Attempts++
		wait.Last = spec.Checker.Check(waitCtx)
		if wait.Last.Ready {
			wait.Outcome = Ready
			wait.Elapsed = time.Since(start)
			return wait
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			wait.Outcome = TimedOut
			wait.Elapsed = time.Since(start)
			return wait
		}
	}
}
