package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/obkit/obup/pkg/execute"
	"github.com/obkit/obup/pkg/probe"
)

// fakeExec returns canned results keyed by program name and records the
// order of executed programs.
type fakeExec struct {
	results map[string]execute.Result
	calls   []string
}

func (f *fakeExec) Run(ctx context.Context, spec execute.Spec) execute.Result {
	f.calls = append(f.calls, spec.Program)
	if res, ok := f.results[spec.Program]; ok {
		return res
	}
	return execute.Result{ExitCode: 0, Stdout: "ok"}
}

// fakeChecker is a probe checker with a fixed answer.
type fakeChecker struct {
	ready bool
}

func (f *fakeChecker) Check(ctx context.Context) probe.Result {
	return probe.Result{Ready: f.ready, Message: "fake", CheckedAt: time.Now()}
}

func (f *fakeChecker) Type() probe.CheckType { return probe.CheckTypeExec }

func quickProbe(ready bool) *probe.Spec {
	return &probe.Spec{
		Target:   "fake",
		Checker:  &fakeChecker{ready: ready},
		Interval: 10 * time.Millisecond,
		Timeout:  50 * time.Millisecond,
	}
}

func TestRunner_AllStepsSucceed(t *testing.T) {
	exec := &fakeExec{}
	runner := NewRunner(exec)

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Steps: []Step{
			{Name: "first", Spec: execute.Spec{Program: "a"}},
			{Name: "second", Spec: execute.Spec{Program: "b"}},
		},
	})

	if result.Status != StageSuccess {
		t.Fatalf("Expected success, got %q (reason %q)", result.Status, result.Reason)
	}
	if len(result.Steps) != 2 {
		t.Errorf("Expected 2 step outcomes, got %d", len(result.Steps))
	}
	if len(exec.calls) != 2 {
		t.Errorf("Expected 2 executions, got %v", exec.calls)
	}
}

func TestRunner_ShortCircuitsOnStepFailure(t *testing.T) {
	exec := &fakeExec{
		results: map[string]execute.Result{
			"b": {ExitCode: 1, Failure: execute.FailureNonZeroExit, Stderr: "boom"},
		},
	}
	runner := NewRunner(exec)

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Steps: []Step{
			{Name: "first", Spec: execute.Spec{Program: "a"}},
			{Name: "second", Spec: execute.Spec{Program: "b"}},
			{Name: "third", Spec: execute.Spec{Program: "c"}},
		},
	})

	if result.Status != StageFailed {
		t.Fatalf("Expected failed, got %q", result.Status)
	}
	if result.Reason != ReasonStepFailed {
		t.Errorf("Expected reason %q, got %q", ReasonStepFailed, result.Reason)
	}
	if result.FailedStep != "second" {
		t.Errorf("Expected failed step %q, got %q", "second", result.FailedStep)
	}
	// The third step must not run: steps are one logical unit of work
	if len(exec.calls) != 2 {
		t.Errorf("Expected short-circuit after 2 executions, got %v", exec.calls)
	}
	if len(result.Steps) != 2 {
		t.Errorf("Expected 2 recorded outcomes, got %d", len(result.Steps))
	}
}

func TestRunner_PreconditionNotReady(t *testing.T) {
	exec := &fakeExec{}
	runner := NewRunner(exec)

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Pre:     quickProbe(false),
		Steps:   []Step{{Name: "first", Spec: execute.Spec{Program: "a"}}},
	})

	if result.Status != StageFailed {
		t.Fatalf("Expected failed, got %q", result.Status)
	}
	if result.Reason != ReasonPreconditionNotReady {
		t.Errorf("Expected reason %q, got %q", ReasonPreconditionNotReady, result.Reason)
	}
	// No steps may execute when the precondition never held
	if len(exec.calls) != 0 {
		t.Errorf("Expected no executions, got %v", exec.calls)
	}
}

func TestRunner_PostconditionNotReady(t *testing.T) {
	exec := &fakeExec{}
	runner := NewRunner(exec)

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Steps:   []Step{{Name: "first", Spec: execute.Spec{Program: "a"}}},
		Post:    quickProbe(false),
	})

	if result.Status != StageFailed {
		t.Fatalf("Expected failed, got %q", result.Status)
	}
	if result.Reason != ReasonPostconditionNotReady {
		t.Errorf("Expected reason %q, got %q", ReasonPostconditionNotReady, result.Reason)
	}
	// Steps did run; only the exit gate failed
	if len(exec.calls) != 1 {
		t.Errorf("Expected 1 execution, got %v", exec.calls)
	}
}

func TestRunner_GatesSatisfied(t *testing.T) {
	exec := &fakeExec{}
	runner := NewRunner(exec)

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Pre:     quickProbe(true),
		Steps:   []Step{{Name: "first", Spec: execute.Spec{Program: "a"}}},
		Post:    quickProbe(true),
	})

	if result.Status != StageSuccess {
		t.Fatalf("Expected success, got %q (reason %q)", result.Status, result.Reason)
	}
}

func TestRunner_OutputPredicateRejects(t *testing.T) {
	exec := &fakeExec{
		results: map[string]execute.Result{
			"verify": {ExitCode: 0, Stdout: "unexpected"},
		},
	}
	runner := NewRunner(exec)

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Steps: []Step{{
			Name: "verify",
			Spec: execute.Spec{Program: "verify"},
			Check: func(res execute.Result) error {
				if res.Stdout != "1" {
					return fmt.Errorf("expected 1, got %q", res.Stdout)
				}
				return nil
			},
		}},
	})

	if result.Status != StageFailed {
		t.Fatalf("Expected failed, got %q", result.Status)
	}
	if result.Steps[0].Failure != FailureOutputRejected {
		t.Errorf("Expected failure %q, got %q", FailureOutputRejected, result.Steps[0].Failure)
	}
}

func TestRunner_RendersConfigBeforeSteps(t *testing.T) {
	exec := &fakeExec{}
	runner := NewRunner(exec)
	path := filepath.Join(t.TempDir(), "conf", "service.conf")

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Renders: []RenderSpec{{
			Name:     "service-config",
			Template: "cluster=${CLUSTER_NAME}\n",
			Vars:     map[string]string{"CLUSTER_NAME": "ob"},
			Path:     path,
		}},
		Steps: []Step{{Name: "first", Spec: execute.Spec{Program: "a"}}},
	})

	if result.Status != StageSuccess {
		t.Fatalf("Expected success, got %q (%s)", result.Status, result.Detail)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected rendered file: %v", err)
	}
	if string(data) != "cluster=ob\n" {
		t.Errorf("Unexpected rendered content: %q", string(data))
	}
}

func TestRunner_RenderFailureStopsStage(t *testing.T) {
	exec := &fakeExec{}
	runner := NewRunner(exec)

	result := runner.Run(context.Background(), Stage{
		Name:    "bringup",
		Ordinal: 1,
		Renders: []RenderSpec{{
			Name:     "service-config",
			Template: "password=${ROOT_PASSWORD}",
			Vars:     map[string]string{},
			Path:     filepath.Join(t.TempDir(), "service.conf"),
		}},
		Steps: []Step{{Name: "first", Spec: execute.Spec{Program: "a"}}},
	})

	if result.Status != StageFailed {
		t.Fatalf("Expected failed, got %q", result.Status)
	}
	if result.Reason != ReasonRenderFailed {
		t.Errorf("Expected reason %q, got %q", ReasonRenderFailed, result.Reason)
	}
	// Misconfiguration surfaces before the downstream service runs
	if len(exec.calls) != 0 {
		t.Errorf("Expected no executions after render failure, got %v", exec.calls)
	}
}
