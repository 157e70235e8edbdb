package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned at construction when a parameter
	// violates its documented constraint.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrBoundsDegenerate marks lb >= ub for some dimension.
	ErrBoundsDegenerate = fmt.Errorf("%w: degenerate bounds", ErrInvalidConfiguration)

	// ErrEvaluatorFault marks a non-finite or failed fitness evaluation.
	ErrEvaluatorFault = errors.New("evaluator fault")
)

// FaultError describes the evaluation that aborted a run.
type FaultError struct {
	Generation int // -1 during initialization
	Individual int
	Value      float64
	Cause      error
}

func (e *FaultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluator fault at generation %d, individual %d: %v", e.Generation, e.Individual, e.Cause)
	}
	return fmt.Sprintf("evaluator fault at generation %d, individual %d: non-finite fitness %v", e.Generation, e.Individual, e.Value)
}

func (e *FaultError) Is(target error) bool { return target == ErrEvaluatorFault }

func (e *FaultError) Unwrap() error { return e.Cause }
