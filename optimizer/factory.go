package optimizer

import (
	"fmt"

	"github.com/snow-ghost/wolfpack/core"
)

// Algorithms lists the supported algorithm names.
func Algorithms() []string {
	return []string{AlgorithmHybrid, AlgorithmStandard}
}

// New creates an optimizer by algorithm name.
func New(algorithm string, cfg Config, eval core.Evaluator, opts ...Option) (Search, error) {
	switch algorithm {
	case AlgorithmHybrid, "":
		return NewHybrid(cfg, eval, opts...)
	case AlgorithmStandard:
		return NewStandard(cfg, eval, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", core.ErrInvalidConfiguration, algorithm)
	}
}
