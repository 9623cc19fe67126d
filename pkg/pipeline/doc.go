/*
Package pipeline defines the unit of deployment work: stages composed of
ordered steps, optionally fenced by readiness gates, executed one at a
time by the Runner.

# Execution Flow

 1. Render declared config artifacts (a bad template fails fast)
 2. Wait on the pre-readiness gate, if declared
 3. Run steps in order; the first failure short-circuits the stage
 4. Wait on the post-readiness gate, if declared
 5. Record a StageResult

A stage is Success only if every step succeeded and every declared gate
held. Failures never propagate as errors out of the Runner; they are
captured in the StageResult and interpreted by the orchestrator, which is
the only place that knows whether a failure is fatal (Critical stage) or
merely recorded.

Captured step output exists for reporting only. Stage-to-stage data flows
through the immutable deployment config and through the side effects the
stages leave behind (files, processes, listeners), never through results.
*/
package pipeline
