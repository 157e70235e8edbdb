package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a run whose budget sets none.
const DefaultTimeout = 30 * time.Second

// ErrBudgetExceeded is returned when a job asks for more work than allowed.
var ErrBudgetExceeded = errors.New("policy: budget exceeded")

// Budget limits a single optimization job.
type Budget struct {
	Timeout        time.Duration
	MaxEvaluations int
}

// Guard admits jobs by problem name and evaluation count and enforces the
// wall clock budget of a run.
type Guard struct {
	allow map[string]bool
}

// NewGuard allows the listed problems. An empty allowlist allows any.
func NewGuard(allowlist []string) *Guard {
	m := make(map[string]bool, len(allowlist))
	for _, n := range allowlist {
		m[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return &Guard{allow: m}
}

// Wrap applies a timeout based on Budget and runs the function. run must
// honor ctx; Wrap waits for it to return.
// Order of precedence: Budget.Timeout > DefaultTimeout.
func (g *Guard) Wrap(ctx context.Context, b Budget, run func(ctx context.Context) error) error {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(execCtx)
	}()

	select {
	case <-execCtx.Done():
		// run owns caller state until it returns
		<-done
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return context.DeadlineExceeded
		}
		return execCtx.Err()
	case err := <-done:
		return err
	}
}

// Admit checks a job of the given problem needing evaluations objective
// calls against the allowlist and the budget.
func (g *Guard) Admit(problem string, evaluations int, b Budget) error {
	if !g.AllowProblem(problem) {
		return fmt.Errorf("%w: problem %q not allowed", ErrBudgetExceeded, problem)
	}
	if evaluations < 0 {
		return fmt.Errorf("%w: negative evaluation count %d", ErrBudgetExceeded, evaluations)
	}
	if b.MaxEvaluations > 0 && evaluations > b.MaxEvaluations {
		return fmt.Errorf("%w: %d evaluations > %d", ErrBudgetExceeded, evaluations, b.MaxEvaluations)
	}
	return nil
}

// AllowProblem returns true if the problem name is allowlisted.
func (g *Guard) AllowProblem(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	if len(g.allow) == 0 {
		return true
	}
	return g.allow[name]
}
