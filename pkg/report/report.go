package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/obkit/obup/pkg/pipeline"
)

// Status is the derived overall status of a deployment run.
type Status string

const (
	// StatusSucceeded means every executed stage succeeded.
	StatusSucceeded Status = "succeeded"

	// StatusFailedPartial means one or more non-critical stages failed
	// but the pipeline ran to its end.
	StatusFailedPartial Status = "failed_partial"

	// StatusFailedFatal means a critical stage failed and everything
	// downstream was skipped.
	StatusFailedFatal Status = "failed_fatal"
)

// Exit codes for the orchestration process, so callers can distinguish
// "fully broken" from "mostly fine, one optional step failed".
const (
	ExitSucceeded     = 0
	ExitFailedPartial = 2
	ExitFailedFatal   = 3
)

// DeploymentReport is the final, structured record of what happened
// across all executed stages of a single run.
type DeploymentReport struct {
	RunID      string                 `json:"run_id"`
	Cluster    string                 `json:"cluster"`
	Status     Status                 `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Stages     []pipeline.StageResult `json:"stages"`

	// Skipped names stages never attempted because a critical stage
	// failed before them.
	Skipped []string `json:"skipped_stages,omitempty"`
}

// Summarize collects stage results into a report. It is deterministic:
// the same inputs always yield the same status and the same rendered
// summary.
func Summarize(runID, cluster string, startedAt, finishedAt time.Time, results []pipeline.StageResult, skipped []string) *DeploymentReport {
	status := StatusSucceeded
	for _, res := range results {
		if res.Status != pipeline.StageFailed {
			continue
		}
		if res.Critical {
			status = StatusFailedFatal
			break
		}
		status = StatusFailedPartial
	}

	return &DeploymentReport{
		RunID:      runID,
		Cluster:    cluster,
		Status:     status,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Stages:     results,
		Skipped:    skipped,
	}
}

// ExitCode maps the overall status onto the process exit code.
func (r *DeploymentReport) ExitCode() int {
	switch r.Status {
	case StatusFailedFatal:
		return ExitFailedFatal
	case StatusFailedPartial:
		return ExitFailedPartial
	default:
		return ExitSucceeded
	}
}

// JSON renders the report for machine consumption.
func (r *DeploymentReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Render produces the human-readable summary: every stage with its
// status, the failing step with captured output excerpts, and the stages
// skipped as a consequence of a fatal failure.
func (r *DeploymentReport) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Deployment report for cluster %q (run %s)\n", r.Cluster, r.RunID)
	fmt.Fprintf(&b, "Status: %s\n", statusLabel(r.Status))
	fmt.Fprintf(&b, "Elapsed: %s\n\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	for _, stage := range r.Stages {
		marker := "✓"
		if stage.Status == pipeline.StageFailed {
			marker = "✗"
		}
		fmt.Fprintf(&b, "%s %d. %s: %s (%s)\n",
			marker, stage.Ordinal, stage.Stage, stage.Status,
			stage.Duration.Round(time.Millisecond))

		if stage.Status != pipeline.StageFailed {
			continue
		}

		switch stage.Reason {
		case pipeline.ReasonPreconditionNotReady:
			fmt.Fprintf(&b, "    precondition never became ready; no steps executed\n")
		case pipeline.ReasonPostconditionNotReady:
			fmt.Fprintf(&b, "    steps completed but postcondition never became ready\n")
		case pipeline.ReasonStepFailed:
			fmt.Fprintf(&b, "    failed step: %s\n", stage.FailedStep)
			for _, step := range stage.Steps {
				if step.Name != stage.FailedStep {
					continue
				}
				fmt.Fprintf(&b, "    failure: %s (exit %d)\n", step.Failure, step.ExitCode)
				if step.Message != "" {
					fmt.Fprintf(&b, "    detail: %s\n", step.Message)
				}
				if out := excerpt(step.Stdout); out != "" {
					fmt.Fprintf(&b, "    stdout: %s\n", out)
				}
				if out := excerpt(step.Stderr); out != "" {
					fmt.Fprintf(&b, "    stderr: %s\n", out)
				}
			}
		}
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped after fatal failure: %s\n", strings.Join(r.Skipped, ", "))
	}

	return b.String()
}

func statusLabel(s Status) string {
	switch s {
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusFailedPartial:
		return "FAILED (partial)"
	case StatusFailedFatal:
		return "FAILED (fatal)"
	default:
		return string(s)
	}
}

// excerpt trims captured output to a single reportable line. The full
// output stays available in the JSON form and the history archive.
func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " [...]"
	}
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
