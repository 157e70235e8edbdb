package optimizer

import (
	"encoding"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/snow-ghost/wolfpack/core"
)

// State is a resumable snapshot of a run taken between generations.
type State struct {
	Algorithm   string      `json:"algorithm"`
	Generation  int         `json:"generation"`
	Positions   [][]float64 `json:"positions"`
	Fitness     []float64   `json:"fitness"`
	Alpha       []float64   `json:"alpha"`
	Beta        []float64   `json:"beta"`
	Delta       []float64   `json:"delta"`
	BestFitness float64     `json:"best_fitness"`
	History     []float64   `json:"history"`
	Evaluations int         `json:"evaluations"`
	Source      []byte      `json:"source"`
}

// Snapshot captures the run so that Resume can continue it with the exact
// same trajectory.
func (s *search) Snapshot() (State, error) {
	if !s.initialized {
		return State{}, errors.New("snapshot: run not started")
	}
	m, ok := s.opts.source.(encoding.BinaryMarshaler)
	if !ok {
		return State{}, fmt.Errorf("snapshot: random source %T cannot be marshalled", s.opts.source)
	}
	src, err := m.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("snapshot: marshal random source: %w", err)
	}

	pop := s.pop.Clone()
	return State{
		Algorithm:   s.algorithm,
		Generation:  s.generation,
		Positions:   pop.Positions,
		Fitness:     pop.Fitness,
		Alpha:       slices.Clone(s.alpha),
		Beta:        slices.Clone(s.beta),
		Delta:       slices.Clone(s.delta),
		BestFitness: s.best,
		History:     slices.Clone(s.history),
		Evaluations: s.evaluations,
		Source:      src,
	}, nil
}

// Resume rebuilds an optimizer from a snapshot. cfg must be the configuration
// the snapshot was taken with. Without WithSource a PCG source is restored.
func Resume(cfg Config, eval core.Evaluator, st State, opts ...Option) (Search, error) {
	var (
		sr  Search
		s   *search
		err error
	)
	switch st.Algorithm {
	case AlgorithmHybrid:
		var h *Hybrid
		h, err = NewHybrid(cfg, eval, append([]Option{WithSource(&rand.PCG{})}, opts...)...)
		if h != nil {
			sr, s = h, h.search
		}
	case AlgorithmStandard:
		var g *Standard
		g, err = NewStandard(cfg, eval, append([]Option{WithSource(&rand.PCG{})}, opts...)...)
		if g != nil {
			sr, s = g, g.search
		}
	default:
		return nil, fmt.Errorf("resume: unknown algorithm %q", st.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	if err := s.restore(st); err != nil {
		return nil, err
	}
	return sr, nil
}

func (s *search) restore(st State) error {
	if err := st.check(s.cfg); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	u, ok := s.opts.source.(encoding.BinaryUnmarshaler)
	if !ok {
		return fmt.Errorf("resume: random source %T cannot be unmarshalled", s.opts.source)
	}
	if err := u.UnmarshalBinary(st.Source); err != nil {
		return fmt.Errorf("resume: restore random source: %w", err)
	}

	pop := (&Population{Positions: st.Positions, Fitness: st.Fitness}).Clone()
	s.pop = pop
	s.alpha = slices.Clone(st.Alpha)
	s.beta = slices.Clone(st.Beta)
	s.delta = slices.Clone(st.Delta)
	s.best = st.BestFitness
	s.history = append(make([]float64, 0, s.cfg.Generations), st.History...)
	s.generation = st.Generation
	s.evaluations = st.Evaluations
	s.initialized = true
	return nil
}

func (st State) check(cfg Config) error {
	if st.Generation < 0 || st.Generation > cfg.Generations {
		return fmt.Errorf("%w: generation %d outside [0,%d]", core.ErrInvalidConfiguration, st.Generation, cfg.Generations)
	}
	if len(st.History) != st.Generation {
		return fmt.Errorf("%w: history length %d, generation %d", core.ErrInvalidConfiguration, len(st.History), st.Generation)
	}
	if len(st.Positions) != cfg.PopulationSize || len(st.Fitness) != cfg.PopulationSize {
		return fmt.Errorf("%w: population of %d, want %d", core.ErrInvalidConfiguration, len(st.Positions), cfg.PopulationSize)
	}
	for _, x := range append(slices.Clone(st.Positions), st.Alpha, st.Beta, st.Delta) {
		if len(x) != cfg.Dimension {
			return fmt.Errorf("%w: position of dimension %d, want %d", core.ErrInvalidConfiguration, len(x), cfg.Dimension)
		}
	}
	return nil
}
