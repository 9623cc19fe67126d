package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/obkit/obup/pkg/log"
	"github.com/obkit/obup/pkg/metrics"
	"github.com/obkit/obup/pkg/pipeline"
	"github.com/obkit/obup/pkg/report"
)

// State is the run's position in its lifecycle. Terminal states are
// final: an Orchestrator drives exactly one deployment attempt and is
// never reused. Retrying the whole pipeline is an operator decision
// outside this core.
type State string

const (
	StatePending       State = "pending"
	StateRunning       State = "running"
	StateSucceeded     State = "succeeded"
	StateFailedFatal   State = "failed_fatal"
	StateFailedPartial State = "failed_partial"
)

// StageRunner executes one stage. pipeline.Runner is the production
// implementation; tests substitute fakes.
type StageRunner interface {
	Run(ctx context.Context, stage pipeline.Stage) pipeline.StageResult
}

// Orchestrator owns the ordered stage list and runs it in sequence. A
// failed critical stage halts the run; a failed non-critical stage is
// recorded and the run continues.
type Orchestrator struct {
	runner  StageRunner
	stages  []pipeline.Stage
	cluster string
	runID   string
	state   State
	results []pipeline.StageResult
	logger  zerolog.Logger
}

// New builds an orchestrator for one run. Stage ordinals must be strictly
// increasing; downstream stages assume upstream state exists, so the
// order is part of the contract, not a hint.
func New(runner StageRunner, cluster string, stages []pipeline.Stage) (*Orchestrator, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages to run")
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].Ordinal <= stages[i-1].Ordinal {
			return nil, fmt.Errorf("stage ordinals must be strictly increasing: %q (%d) after %q (%d)",
				stages[i].Name, stages[i].Ordinal, stages[i-1].Name, stages[i-1].Ordinal)
		}
	}

	runID := uuid.New().String()
	return &Orchestrator{
		runner:  runner,
		stages:  stages,
		cluster: cluster,
		runID:   runID,
		state:   StatePending,
		logger:  log.WithRunID(runID),
	}, nil
}

// RunID returns the unique identifier of this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Deploy runs the stages in ordinal order and produces the final report.
// It may be called once; the report is only exposed after the run has
// reached a terminal state.
func (o *Orchestrator) Deploy(ctx context.Context) (*report.DeploymentReport, error) {
	if o.state != StatePending {
		return nil, fmt.Errorf("deployment already ran (state %s)", o.state)
	}
	o.state = StateRunning

	startedAt := time.Now()
	o.logger.Info().
		Str("cluster", o.cluster).
		Int("stages", len(o.stages)).
		Msg("deployment starting")

	var skipped []string
	for i, stage := range o.stages {
		result := o.runner.Run(ctx, stage)
		o.results = append(o.results, result)

		if result.Status == pipeline.StageFailed && stage.Critical {
			// Nothing downstream can make sense once a critical stage has
			// failed; record what was skipped and stop.
			for _, rest := range o.stages[i+1:] {
				skipped = append(skipped, rest.Name)
			}
			o.logger.Error().
				Str("stage", stage.Name).
				Int("skipped", len(skipped)).
				Msg("critical stage failed, halting deployment")
			break
		}

		if result.Status == pipeline.StageFailed {
			o.logger.Warn().
				Str("stage", stage.Name).
				Msg("non-critical stage failed, continuing")
		}
	}

	rep := report.Summarize(o.runID, o.cluster, startedAt, time.Now(), o.results, skipped)

	switch rep.Status {
	case report.StatusFailedFatal:
		o.state = StateFailedFatal
	case report.StatusFailedPartial:
		o.state = StateFailedPartial
	default:
		o.state = StateSucceeded
	}
	metrics.DeploysTotal.WithLabelValues(string(rep.Status)).Inc()

	o.logger.Info().
		Str("status", string(rep.Status)).
		Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("deployment finished")

	return rep, nil
}
