/*
Package probe decides when an external service has actually come up.

Bring-up of the observer, the proxy, and the log-replication service is
asynchronous: launching the process says nothing about when it will accept
work. This package replaces the blind "sleep N" of the original shell flow
with a bounded, cancellable poll.

# Architecture

	┌──────────────────────────────────────────────┐
	│              WaitUntilReady(ctx, Spec)       │
	│  immediate first check, then fixed interval  │
	│  until Ready or Timeout                      │
	└────────┬─────────────────────────────────────┘
	         │
	┌────────▼─────────────────────────────────────┐
	│               Checker Interface              │
	│  • Check(ctx) Result                         │
	│  • Type() CheckType                          │
	└────┬──────────────┬──────────────┬───────────┘
	     ▼              ▼              ▼
	┌─────────┐   ┌──────────┐   ┌───────────┐
	│   TCP   │   │   Exec   │   │   Query   │
	│ Checker │   │ Checker  │   │  Checker  │
	└─────────┘   └──────────┘   └───────────┘
	  connect       run probe      run trivial
	  :port         command        statement

# Checker Types

TCP answers "is something listening yet". Exec runs an arbitrary probe
command and treats exit 0 as ready, optionally tightened by a stdout
predicate. Query wraps Exec around the database client binary, which is
the strongest signal: the engine parsed and answered a statement.

The poll interval is fixed rather than backed off. The dominant cost here
is the service's own startup time, not contention, and a fixed interval
keeps timing behavior deterministic and testable.

# Usage

	wait := probe.WaitUntilReady(ctx, probe.Spec{
		Target:   "observer",
		Checker:  probe.NewTCPChecker("127.0.0.1:2881"),
		Interval: 2 * time.Second,
		Timeout:  2 * time.Minute,
	})
	if wait.Outcome == probe.TimedOut {
		// react to the stage failing its readiness gate
	}
*/
package probe
