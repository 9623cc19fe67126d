package pipeline

import (
	"os"
	"time"

	"github.com/obkit/obup/pkg/execute"
	"github.com/obkit/obup/pkg/probe"
)

// Step is one atomic executable action within a stage: a process launch
// or a query statement driven through the client binary. Success means
// exit code zero, optionally tightened by Check.
type Step struct {
	// Name identifies the step in logs and reports.
	Name string

	// Spec is the command to run.
	Spec execute.Spec

	// Check, when non-nil, is an extra predicate over the captured result
	// of a zero-exit run. Returning an error fails the step.
	Check func(res execute.Result) error
}

// Stage is one named phase of the deployment pipeline: ordered steps with
// optional readiness gating on entry and exit.
type Stage struct {
	// Name identifies the stage.
	Name string

	// Ordinal is the stage's position in the pipeline. Ordinals are
	// strictly increasing and stages execute in that order, never
	// reordered or parallelized.
	Ordinal int

	// Critical marks a stage whose failure invalidates everything
	// downstream. Failure of a non-critical stage is recorded and the
	// run continues.
	Critical bool

	// Renders are configuration files produced before anything else in
	// the stage runs. A render failure fails the stage without executing
	// any step.
	Renders []RenderSpec

	// Pre, when non-nil, gates stage entry: the stage runs no steps
	// until the probe reports ready.
	Pre *probe.Spec

	// Post, when non-nil, gates stage exit after all steps succeeded.
	Post *probe.Spec

	// Steps are executed in order. They are a single logical unit of
	// work: the first failure short-circuits the rest of the stage.
	Steps []Step
}

// RenderSpec describes one configuration file a stage materializes for a
// downstream service before its steps run.
type RenderSpec struct {
	// Name identifies the artifact in logs and reports.
	Name string

	// Template is the ${VAR}-style template text.
	Template string

	// Vars are the substitution values, usually config.Vars().
	Vars map[string]string

	// Path is the destination file.
	Path string

	// Mode is the file mode for the written file. Zero means 0644.
	Mode os.FileMode
}

// StageStatus represents the overall outcome of one stage
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// FailureReason says why a stage failed
type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonPreconditionNotReady  FailureReason = "precondition_not_ready"
	ReasonPostconditionNotReady FailureReason = "postcondition_not_ready"
	ReasonStepFailed            FailureReason = "step_failed"
	ReasonRenderFailed          FailureReason = "render_failed"
)

// FailureOutputRejected marks a step that exited zero but whose captured
// output failed the step's Check predicate.
const FailureOutputRejected execute.FailureKind = "output_rejected"

// StepOutcome is the captured result of one executed step. Output is
// retained only for reporting; it never feeds the control flow of a
// later stage.
type StepOutcome struct {
	Name     string              `json:"name"`
	ExitCode int                 `json:"exit_code"`
	Stdout   string              `json:"stdout,omitempty"`
	Stderr   string              `json:"stderr,omitempty"`
	Duration time.Duration       `json:"duration"`
	Failure  execute.FailureKind `json:"failure,omitempty"`
	Message  string              `json:"message,omitempty"`
}

// OK reports whether the step succeeded.
func (o StepOutcome) OK() bool {
	return o.Failure == execute.FailureNone
}

// StageResult records what happened to one stage during the run.
type StageResult struct {
	Stage      string        `json:"stage"`
	Ordinal    int           `json:"ordinal"`
	Critical   bool          `json:"critical"`
	Status     StageStatus   `json:"status"`
	Reason     FailureReason `json:"reason,omitempty"`
	FailedStep string        `json:"failed_step,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Steps      []StepOutcome `json:"steps,omitempty"`
	Duration   time.Duration `json:"duration"`
}
