package execute

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecutor_Success(t *testing.T) {
	exec := NewExecutor()

	result := exec.Run(context.Background(), Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "echo hello"},
		Timeout: 5 * time.Second,
	})

	if !result.OK() {
		t.Fatalf("Expected success, got failure %q: %v", result.Failure, result.Err)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("Expected stdout %q, got %q", "hello", result.Stdout)
	}
	if result.Duration <= 0 {
		t.Error("Expected positive duration")
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	exec := NewExecutor()

	result := exec.Run(context.Background(), Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
		Timeout: 5 * time.Second,
	})

	if result.Failure != FailureNonZeroExit {
		t.Fatalf("Expected %q, got %q", FailureNonZeroExit, result.Failure)
	}
	if result.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stderr) != "oops" {
		t.Errorf("Expected stderr %q, got %q", "oops", result.Stderr)
	}
	// Non-zero exit is a reportable outcome, not an error
	if result.Err != nil {
		t.Errorf("Expected nil Err for non-zero exit, got %v", result.Err)
	}
}

func TestExecutor_LaunchFailure(t *testing.T) {
	exec := NewExecutor()

	result := exec.Run(context.Background(), Spec{
		Program: "/nonexistent/binary/for/sure",
		Timeout: 5 * time.Second,
	})

	if result.Failure != FailureLaunch {
		t.Fatalf("Expected %q, got %q", FailureLaunch, result.Failure)
	}
	if result.Err == nil {
		t.Error("Expected launch error to be surfaced")
	}
	if result.ExitCode != -1 {
		t.Errorf("Expected exit code -1, got %d", result.ExitCode)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	exec := NewExecutor()

	start := time.Now()
	result := exec.Run(context.Background(), Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if result.Failure != FailureTimeout {
		t.Fatalf("Expected %q, got %q", FailureTimeout, result.Failure)
	}
	if result.Err == nil {
		t.Error("Expected timeout error to be surfaced")
	}
	if elapsed > 2*time.Second {
		t.Errorf("Expected the process to be killed at the budget, took %v", elapsed)
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	exec := NewExecutor()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := exec.Run(ctx, Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
	})

	if result.Failure != FailureTimeout {
		t.Fatalf("Expected cancellation to classify as %q, got %q", FailureTimeout, result.Failure)
	}
}

func TestExecutor_Env(t *testing.T) {
	exec := NewExecutor()

	result := exec.Run(context.Background(), Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "echo $OBUP_TEST_VAR"},
		Env:     []string{"OBUP_TEST_VAR=from-spec"},
		Timeout: 5 * time.Second,
	})

	if !result.OK() {
		t.Fatalf("Expected success, got %q", result.Failure)
	}
	if strings.TrimSpace(result.Stdout) != "from-spec" {
		t.Errorf("Expected env var to reach the process, got stdout %q", result.Stdout)
	}
}
