package optimizer

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/snow-ghost/wolfpack/core"
)

// Population holds P positions and their fitness values, index-aligned.
type Population struct {
	Positions [][]float64
	Fitness   []float64
}

// samplePopulation draws size individuals uniformly inside b, individual by
// individual and dimension by dimension.
func samplePopulation(rng *rand.Rand, size int, b core.Bounds) *Population {
	p := &Population{
		Positions: make([][]float64, size),
		Fitness:   make([]float64, size),
	}
	for i := range p.Positions {
		x := make([]float64, b.Dim())
		for d := range x {
			x[d] = uniform(rng, b.Lower[d], b.Upper[d])
		}
		p.Positions[i] = x
	}
	return p
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Len returns the population size.
func (p *Population) Len() int { return len(p.Positions) }

// Clone returns a deep copy.
func (p *Population) Clone() *Population {
	c := &Population{
		Positions: make([][]float64, len(p.Positions)),
		Fitness:   slices.Clone(p.Fitness),
	}
	for i, x := range p.Positions {
		c.Positions[i] = slices.Clone(x)
	}
	return c
}

// Order returns the indices of the population ranked best-first. Equal
// fitness keeps the lower index first.
func (p *Population) Order(dir core.Direction) []int {
	idx := make([]int, p.Len())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case dir.Better(p.Fitness[a], p.Fitness[b]):
			return -1
		case dir.Better(p.Fitness[b], p.Fitness[a]):
			return 1
		default:
			return 0
		}
	})
	return idx
}

// Rank reorders positions and fitness in lockstep so index 0 is best.
func (p *Population) Rank(dir core.Direction) {
	order := p.Order(dir)
	positions := make([][]float64, len(order))
	fitness := make([]float64, len(order))
	for to, from := range order {
		positions[to] = p.Positions[from]
		fitness[to] = p.Fitness[from]
	}
	p.Positions = positions
	p.Fitness = fitness
}

// Clip saturates every coordinate into b.
func (p *Population) Clip(b core.Bounds) {
	for _, x := range p.Positions {
		for d, v := range x {
			x[d] = b.Clip(d, v)
		}
	}
}

// Evaluate scores every individual. generation is reported in faults.
func (p *Population) Evaluate(ctx context.Context, eval core.Evaluator, generation int) (int, error) {
	for i, x := range p.Positions {
		v, err := eval.Evaluate(ctx, x)
		if err != nil {
			return i + 1, &core.FaultError{Generation: generation, Individual: i, Cause: err}
		}
		if !core.IsFinite(v) {
			return i + 1, &core.FaultError{Generation: generation, Individual: i, Value: v}
		}
		p.Fitness[i] = v
	}
	return p.Len(), nil
}
