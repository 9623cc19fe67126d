package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/obkit/obup/pkg/execute"
	"github.com/obkit/obup/pkg/log"
	"github.com/obkit/obup/pkg/metrics"
	"github.com/obkit/obup/pkg/probe"
	"github.com/obkit/obup/pkg/render"
)

// Runner executes one stage at a time: readiness gate in, steps in order,
// readiness gate out. Step failures become data in the StageResult; they
// are never propagated as errors past the runner.
type Runner struct {
	exec   execute.Runner
	logger zerolog.Logger
}

// NewRunner creates a stage runner on top of a command runner.
func NewRunner(exec execute.Runner) *Runner {
	return &Runner{
		exec:   exec,
		logger: log.WithComponent("stage-runner"),
	}
}

// Run executes the stage and records its result. A stage succeeds only if
// all steps under it succeeded and any declared readiness gates held.
func (r *Runner) Run(ctx context.Context, stage Stage) StageResult {
	start := time.Now()
	logger := r.logger.With().Str("stage", stage.Name).Logger()
	logger.Info().Int("ordinal", stage.Ordinal).Bool("critical", stage.Critical).Msg("stage starting")

	result := StageResult{
		Stage:    stage.Name,
		Ordinal:  stage.Ordinal,
		Critical: stage.Critical,
		Status:   StageSuccess,
	}

	defer func() {
		result.Duration = time.Since(start)
		metrics.StageDuration.WithLabelValues(stage.Name).Observe(result.Duration.Seconds())
		metrics.StagesTotal.WithLabelValues(string(result.Status)).Inc()
	}()

	// Configuration files first: a downstream service must never start
	// against a half-rendered or misconfigured file.
	for _, spec := range stage.Renders {
		if err := r.renderFile(spec); err != nil {
			result.Status = StageFailed
			result.Reason = ReasonRenderFailed
			result.Detail = fmt.Sprintf("%s: %v", spec.Name, err)
			logger.Error().Str("artifact", spec.Name).Err(err).Msg("config render failed")
			return result
		}
		logger.Info().Str("artifact", spec.Name).Str("path", spec.Path).Msg("config rendered")
	}

	// Entry gate: nothing runs until the precondition holds.
	if stage.Pre != nil {
		if !r.await(ctx, logger, *stage.Pre) {
			result.Status = StageFailed
			result.Reason = ReasonPreconditionNotReady
			logger.Error().Str("target", stage.Pre.Target).Msg("precondition never became ready")
			return result
		}
	}

	for _, step := range stage.Steps {
		outcome := r.runStep(ctx, logger, step)
		result.Steps = append(result.Steps, outcome)

		if !outcome.OK() {
			// Steps within one stage are a single logical unit of work,
			// so the remaining steps are not attempted.
			result.Status = StageFailed
			result.Reason = ReasonStepFailed
			result.FailedStep = step.Name
			logger.Error().
				Str("step", step.Name).
				Str("failure", string(outcome.Failure)).
				Int("exit_code", outcome.ExitCode).
				Msg("step failed, short-circuiting stage")
			return result
		}
	}

	// Exit gate: the stage's side effects must be observable downstream.
	if stage.Post != nil {
		if !r.await(ctx, logger, *stage.Post) {
			result.Status = StageFailed
			result.Reason = ReasonPostconditionNotReady
			logger.Error().Str("target", stage.Post.Target).Msg("postcondition never became ready")
			return result
		}
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("stage succeeded")
	return result
}

// renderFile renders one config artifact and writes it to its
// destination. The renderer itself is pure; writing is the runner's job.
func (r *Runner) renderFile(spec RenderSpec) error {
	text, err := render.Render(spec.Template, spec.Vars)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(spec.Path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	mode := spec.Mode
	if mode == 0 {
		mode = 0644
	}
	if err := os.WriteFile(spec.Path, []byte(text), mode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// runStep executes a single step and classifies its outcome.
func (r *Runner) runStep(ctx context.Context, logger zerolog.Logger, step Step) StepOutcome {
	logger.Debug().Str("step", step.Name).Str("program", step.Spec.Program).Msg("running step")

	res := r.exec.Run(ctx, step.Spec)
	metrics.StepsTotal.WithLabelValues(string(res.Failure)).Inc()

	outcome := StepOutcome{
		Name:     step.Name,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Duration: res.Duration,
		Failure:  res.Failure,
	}
	if res.Err != nil {
		outcome.Message = res.Err.Error()
	}

	// The expected-success policy defaults to exit-code-zero; a custom
	// predicate can reject a zero-exit run by its captured output.
	if outcome.OK() && step.Check != nil {
		if err := step.Check(res); err != nil {
			outcome.Failure = FailureOutputRejected
			outcome.Message = err.Error()
		}
	}

	return outcome
}

// await blocks on a readiness spec and reports whether it was satisfied.
func (r *Runner) await(ctx context.Context, logger zerolog.Logger, spec probe.Spec) bool {
	logger.Info().
		Str("target", spec.Target).
		Str("check", string(spec.Checker.Type())).
		Dur("timeout", spec.Timeout).
		Msg("waiting for readiness")

	wait := probe.WaitUntilReady(ctx, spec)
	metrics.ProbeWaitsTotal.WithLabelValues(spec.Target, string(wait.Outcome)).Inc()

	if wait.Outcome != probe.Ready {
		logger.Warn().
			Str("target", spec.Target).
			Int("attempts", wait.Attempts).
			Dur("elapsed", wait.Elapsed).
			Msg(fmt.Sprintf("not ready: %s", wait.Last.Message))
		return false
	}

	logger.Info().
		Str("target", spec.Target).
		Int("attempts", wait.Attempts).
		Dur("elapsed", wait.Elapsed).
		Msg("target ready")
	return true
}
