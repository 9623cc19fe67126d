package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/obkit/obup/pkg/execute"
)

// QueryChecker reports a database ready once a trivial statement succeeds
// through the client binary. The core never interprets the SQL itself;
// ready means the client connected, ran the statement, and exited zero.
type QueryChecker struct {
	inner *ExecChecker
}

// QueryTarget names the connection parameters for a query probe.
type QueryTarget struct {
	ClientBin string
	Host      string
	Port      int
	User      string
	Password  string
}

// NewQueryChecker creates a checker that runs statement against the target
// on every poll.
func NewQueryChecker(runner execute.Runner, target QueryTarget, statement string) *QueryChecker {
	args := []string{
		"-h", target.Host,
		"-P", fmt.Sprintf("%d", target.Port),
		"-u", target.User,
		"--connect-timeout=5",
		"-N", "-B",
		"-e", statement,
	}
	if target.Password != "" {
		args = append(args, "-p"+target.Password)
	}
	spec := execute.Spec{
		Program: target.ClientBin,
		Args:    args,
		Timeout: 10 * time.Second,
	}
	return &QueryChecker{inner: NewExecChecker(runner, spec)}
}

// Check performs the query readiness check
func (q *QueryChecker) Check(ctx context.Context) Result {
	return q.inner.Check(ctx)
}

// Type returns the readiness check type
func (q *QueryChecker) Type() CheckType {
	return CheckTypeQuery
}

// WithRowExpected requires the statement to return at least one row.
func (q *QueryChecker) WithRowExpected() *QueryChecker {
	q.inner.WithExpect(func(stdout string) error {
		if strings.TrimSpace(stdout) == "" {
			return fmt.Errorf("query returned no rows")
		}
		return nil
	})
	return q
}
