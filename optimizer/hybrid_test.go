package optimizer_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func hybridConfig(dim, pop, gens int, lo, hi, m float64, seed uint64) optimizer.Config {
	return optimizer.Config{
		Dimension:      dim,
		PopulationSize: pop,
		Generations:    gens,
		Bounds:         core.UniformBounds(dim, lo, hi),
		MutationRate:   m,
		Direction:      core.Minimize,
		Seed:           seed,
	}
}

// initialRecorder keeps copies of the first n evaluated positions, which are
// the initial population.
type initialRecorder struct {
	inner     core.Evaluator
	n         int
	positions [][]float64
	fitness   []float64
}

func (r *initialRecorder) Evaluate(ctx context.Context, x []float64) (float64, error) {
	v, err := r.inner.Evaluate(ctx, x)
	if len(r.positions) < r.n {
		r.positions = append(r.positions, slices.Clone(x))
		r.fitness = append(r.fitness, v)
	}
	return v, err
}

func TestConfig_Validate(t *testing.T) {
	base := hybridConfig(2, 6, 10, 0, 10, 0.1, 1)

	tests := []struct {
		name       string
		mutate     func(c *optimizer.Config)
		degenerate bool
	}{
		{name: "population below minimum", mutate: func(c *optimizer.Config) { c.PopulationSize = 3 }},
		{name: "zero dimension", mutate: func(c *optimizer.Config) { c.Dimension = 0; c.Bounds = core.UniformBounds(0, 0, 1) }},
		{name: "zero generations", mutate: func(c *optimizer.Config) { c.Generations = 0 }},
		{name: "negative mutation", mutate: func(c *optimizer.Config) { c.MutationRate = -0.1 }},
		{name: "mutation above one", mutate: func(c *optimizer.Config) { c.MutationRate = 1.1 }},
		{name: "nan mutation", mutate: func(c *optimizer.Config) { c.MutationRate = math.NaN() }},
		{name: "unknown direction", mutate: func(c *optimizer.Config) { c.Direction = core.Direction(7) }},
		{name: "bounds dimension mismatch", mutate: func(c *optimizer.Config) { c.Bounds = core.UniformBounds(3, 0, 1) }},
		{name: "lower equals upper", mutate: func(c *optimizer.Config) { c.Bounds.Lower[1] = 10 }, degenerate: true},
		{name: "lower above upper", mutate: func(c *optimizer.Config) { c.Bounds.Lower[0] = 11 }, degenerate: true},
		{name: "infinite bounds", mutate: func(c *optimizer.Config) { c.Bounds = core.UniformBounds(2, math.Inf(-1), math.Inf(1)) }},
		{name: "infinite upper", mutate: func(c *optimizer.Config) { c.Bounds.Upper[0] = math.Inf(1) }},
		{name: "width overflows", mutate: func(c *optimizer.Config) { c.Bounds = core.UniformBounds(2, -math.MaxFloat64, math.MaxFloat64) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Bounds = core.UniformBounds(2, 0, 10)
			tt.mutate(&cfg)

			_, err := optimizer.NewHybrid(cfg, testkit.Sphere)
			require.ErrorIs(t, err, core.ErrInvalidConfiguration)
			assert.Equal(t, tt.degenerate, errors.Is(err, core.ErrBoundsDegenerate))

			_, err = optimizer.NewStandard(cfg, testkit.Sphere)
			require.ErrorIs(t, err, core.ErrInvalidConfiguration)
		})
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, base.Validate())
	})

	t.Run("nil evaluator", func(t *testing.T) {
		_, err := optimizer.NewHybrid(base, nil)
		require.ErrorIs(t, err, core.ErrInvalidConfiguration)
	})
}

func TestHybrid_Deterministic(t *testing.T) {
	cfg := hybridConfig(4, 12, 30, -5.12, 5.12, 0.1, 42)

	run := func() core.Result {
		opt, err := optimizer.NewHybrid(cfg, testkit.Rastrigin)
		require.NoError(t, err)
		res, err := opt.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.BestPosition, b.BestPosition)
	assert.Equal(t, a.History, b.History)
	assert.Equal(t, a.BestFitness, b.BestFitness)
	assert.Equal(t, a.Evaluations, b.Evaluations)

	cfg.Seed = 43
	opt, err := optimizer.NewHybrid(cfg, testkit.Rastrigin)
	require.NoError(t, err)
	c, err := opt.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.BestPosition, c.BestPosition)
}

func TestHybrid_Monotone(t *testing.T) {
	t.Run("minimize", func(t *testing.T) {
		cfg := hybridConfig(5, 20, 60, -5.12, 5.12, 0.1, 7)
		opt, err := optimizer.NewHybrid(cfg, testkit.Rastrigin)
		require.NoError(t, err)
		res, err := opt.Run(context.Background())
		require.NoError(t, err)

		require.NoError(t, testkit.MonotoneHistory(res.History, core.Minimize))
		assert.LessOrEqual(t, res.BestFitness, res.History[len(res.History)-1])
		assert.Equal(t, optimizer.AlgorithmHybrid, res.Algorithm)
	})

	t.Run("maximize", func(t *testing.T) {
		cfg := hybridConfig(3, 10, 40, -3, 3, 0.2, 8)
		cfg.Direction = core.Maximize
		negSphere := core.EvaluatorFunc(func(x []float64) float64 { return -testkit.Sphere(x) })

		opt, err := optimizer.NewHybrid(cfg, negSphere)
		require.NoError(t, err)
		res, err := opt.Run(context.Background())
		require.NoError(t, err)

		require.NoError(t, testkit.MonotoneHistory(res.History, core.Maximize))
		assert.GreaterOrEqual(t, res.BestFitness, res.History[len(res.History)-1])
		assert.Greater(t, res.BestFitness, res.History[0])
		assert.InDelta(t, 0, res.BestFitness, 0.5)
	})
}

func TestHybrid_BoundaryContainment(t *testing.T) {
	// the optimum lies far outside the box so the update keeps overshooting
	far := testkit.DistanceTo(1e6, -1e6, 1e6)
	bounds := core.Bounds{Lower: []float64{0, -1e-3, 5}, Upper: []float64{1, 1e-3, 5.5}}

	for seed := uint64(0); seed < 5; seed++ {
		cfg := optimizer.Config{
			Dimension:      3,
			PopulationSize: 9,
			Generations:    25,
			Bounds:         bounds,
			MutationRate:   0.3,
			Seed:           seed,
		}
		rec := &testkit.Recorder{}
		opt, err := optimizer.NewHybrid(cfg, far, optimizer.WithObserver(rec))
		require.NoError(t, err)

		res, err := opt.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, rec.Generations, 25)
		require.NoError(t, testkit.ContainedGenerations(rec.Generations, bounds))
		assert.True(t, bounds.Contains(res.BestPosition))
	}
}

func TestHybrid_BoundsCopiedAtConstruction(t *testing.T) {
	cfg := hybridConfig(1, 6, 10, 0, 1, 0.2, 3)
	valid := cfg.Bounds.Clone()

	for _, alg := range optimizer.Algorithms() {
		t.Run(alg, func(t *testing.T) {
			cfg := cfg
			cfg.Bounds = valid.Clone()
			rec := &testkit.Recorder{}
			opt, err := optimizer.New(alg, cfg, testkit.DistanceTo(0.5), optimizer.WithObserver(rec))
			require.NoError(t, err)

			cfg.Bounds.Lower[0] = 100
			cfg.Bounds.Upper[0] = 50

			res, err := opt.Run(context.Background())
			require.NoError(t, err)
			require.NoError(t, testkit.ContainedGenerations(rec.Generations, valid))
			assert.True(t, valid.Contains(res.BestPosition))
		})
	}
}

func TestHybrid_HistoryLength(t *testing.T) {
	cases := []struct {
		dim, pop, gens int
		m              float64
	}{
		{1, 4, 1, 0},
		{2, 5, 3, 1},
		{7, 11, 17, 0.5},
		{3, 30, 50, 0.1},
	}
	for _, c := range cases {
		cfg := hybridConfig(c.dim, c.pop, c.gens, -1, 1, c.m, 3)
		counter := &testkit.Counting{Inner: testkit.Sphere}
		opt, err := optimizer.NewHybrid(cfg, counter)
		require.NoError(t, err)

		res, err := opt.Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, res.History, c.gens)
		assert.Len(t, res.BestPosition, c.dim)
		assert.Equal(t, c.pop*(c.gens+1), res.Evaluations)
		assert.Equal(t, res.Evaluations, counter.Calls())
	}
}

func TestHybrid_InitialLeaders(t *testing.T) {
	for _, dir := range []core.Direction{core.Minimize, core.Maximize} {
		t.Run(dir.String(), func(t *testing.T) {
			cfg := hybridConfig(3, 8, 2, -10, 10, 0.1, 11)
			cfg.Direction = dir
			first := &initialRecorder{inner: testkit.Sphere, n: cfg.PopulationSize}
			rec := &testkit.Recorder{}

			opt, err := optimizer.NewHybrid(cfg, first, optimizer.WithObserver(rec))
			require.NoError(t, err)
			res, err := opt.Run(context.Background())
			require.NoError(t, err)

			ranked := &optimizer.Population{Positions: first.positions, Fitness: first.fitness}
			order := ranked.Order(dir)

			g0 := rec.Generations[0]
			assert.Equal(t, first.positions[order[0]], g0.Alpha)
			assert.Equal(t, first.positions[order[1]], g0.Beta)
			assert.Equal(t, first.positions[order[2]], g0.Delta)
			assert.NotEqual(t, g0.Alpha, g0.Beta)
			assert.NotEqual(t, g0.Beta, g0.Delta)

			// the first history entry is the best initial fitness
			assert.Equal(t, first.fitness[order[0]], res.History[0])
		})
	}
}

// One generation never ends worse than the initial population.
func TestHybrid_SingleGeneration(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		cfg := hybridConfig(2, 6, 1, 0, 10, 0.1, seed)
		first := &initialRecorder{inner: testkit.DistanceTo(5, 5), n: 6}

		opt, err := optimizer.NewHybrid(cfg, first)
		require.NoError(t, err)
		res, err := opt.Run(context.Background())
		require.NoError(t, err)

		require.Len(t, res.History, 1)
		assert.LessOrEqual(t, res.BestFitness, slices.Min(first.fitness))
		assert.Equal(t, slices.Min(first.fitness), res.History[0])
	}
}

// With mutation rate 1 the exploration cohort is a fresh uniform
// sample, independent of the crossover parents.
func TestHybrid_FullMutationIsUniform(t *testing.T) {
	const (
		dim  = 5
		pop  = 20
		gens = 50
		lo   = 0.0
		hi   = 10.0
	)
	cfg := hybridConfig(dim, pop, gens, lo, hi, 1.0, 2024)
	rec := &testkit.Recorder{}
	opt, err := optimizer.NewHybrid(cfg, testkit.DistanceTo(2, 2, 2, 2, 2), optimizer.WithObserver(rec))
	require.NoError(t, err)
	_, err = opt.Run(context.Background())
	require.NoError(t, err)

	var values, alphas, betas []float64
	bins := make([]int, 10)
	for _, g := range rec.Generations {
		for i := pop / 2; i < pop; i++ {
			for d, v := range g.Positions[i] {
				values = append(values, v)
				alphas = append(alphas, g.Alpha[d])
				betas = append(betas, g.Beta[d])
				bins[min(int(v), 9)]++
			}
		}
	}
	require.Len(t, values, gens*(pop/2)*dim)

	assert.InDelta(t, 5.0, stat.Mean(values, nil), 0.3)
	assert.InDelta(t, 100.0/12.0, stat.Variance(values, nil), 0.8)
	assert.Less(t, math.Abs(stat.Correlation(values, alphas, nil)), 0.1)
	assert.Less(t, math.Abs(stat.Correlation(values, betas, nil)), 0.1)

	expected := len(values) / len(bins)
	for b, n := range bins {
		assert.InDelta(t, expected, n, 80, "bin %d", b)
	}
}

// With mutation rate 0 the exploration cohort is exactly the
// alpha/beta crossover with one weight per individual.
func TestHybrid_NoMutationIsPureCrossover(t *testing.T) {
	const pop = 9
	cfg := hybridConfig(4, pop, 10, -5, 5, 0.0, 77)
	rec := &testkit.Recorder{}
	opt, err := optimizer.NewHybrid(cfg, testkit.Sphere, optimizer.WithObserver(rec))
	require.NoError(t, err)
	_, err = opt.Run(context.Background())
	require.NoError(t, err)

	checked := 0
	for _, g := range rec.Generations {
		ref := -1
		for d := range g.Alpha {
			if math.Abs(g.Alpha[d]-g.Beta[d]) > 1e-6 {
				ref = d
				break
			}
		}
		if ref < 0 {
			continue
		}
		for i := pop / 2; i < pop; i++ {
			x := g.Positions[i]
			w := (x[ref] - g.Beta[ref]) / (g.Alpha[ref] - g.Beta[ref])
			assert.GreaterOrEqual(t, w, -1e-9)
			assert.Less(t, w, 1+1e-9)
			for d := range x {
				want := w*g.Alpha[d] + (1-w)*g.Beta[d]
				assert.InDelta(t, want, x[d], 1e-6, "generation %d individual %d dim %d", g.Index, i, d)
			}
			checked++
		}
	}
	assert.Greater(t, checked, 0)
}

// The minimum population splits into two cohorts of two.
func TestHybrid_MinimumPopulation(t *testing.T) {
	cfg := hybridConfig(1, optimizer.MinPopulation, 5, -1, 1, 0.5, 4)
	rec := &testkit.Recorder{}
	opt, err := optimizer.NewHybrid(cfg, testkit.Sphere, optimizer.WithObserver(rec))
	require.NoError(t, err)

	res, err := opt.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.History, 5)
	assert.Len(t, rec.Generations, 5)
	for _, g := range rec.Generations {
		assert.Len(t, g.Positions, 4)
	}
	require.NoError(t, testkit.MonotoneHistory(res.History, core.Minimize))
}

func TestHybrid_TiesKeepAlpha(t *testing.T) {
	cfg := hybridConfig(2, 6, 5, -1, 1, 0.1, 5)
	rec := &testkit.Recorder{}
	opt, err := optimizer.NewHybrid(cfg, testkit.Constant(1), optimizer.WithObserver(rec))
	require.NoError(t, err)
	res, err := opt.Run(context.Background())
	require.NoError(t, err)

	alpha := rec.Generations[0].Alpha
	for _, g := range rec.Generations {
		assert.Equal(t, alpha, g.Alpha)
	}
	assert.Equal(t, alpha, res.BestPosition)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, res.History)

	// beta and delta are refreshed every generation even without improvement
	assert.NotEqual(t, rec.Generations[0].Beta, rec.Generations[1].Beta)
}

func TestHybrid_EvaluatorFault(t *testing.T) {
	cfg := hybridConfig(2, 6, 10, -1, 1, 0.1, 1)

	t.Run("non-finite during run", func(t *testing.T) {
		eval := &testkit.Faulty{Inner: testkit.Sphere, After: 6 + 6*3 + 2, Value: math.NaN()}
		opt, err := optimizer.NewHybrid(cfg, eval)
		require.NoError(t, err)

		res, err := opt.Run(context.Background())
		require.ErrorIs(t, err, core.ErrEvaluatorFault)
		assert.Empty(t, res.History)
		assert.Nil(t, res.BestPosition)

		var fe *core.FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, 3, fe.Generation)
		assert.Equal(t, 2, fe.Individual)

		// the run stays aborted
		assert.ErrorIs(t, opt.Step(context.Background()), core.ErrEvaluatorFault)
	})

	t.Run("infinite during initialization", func(t *testing.T) {
		eval := &testkit.Faulty{Inner: testkit.Sphere, After: 4, Value: math.Inf(-1)}
		opt, err := optimizer.NewHybrid(cfg, eval)
		require.NoError(t, err)

		_, err = opt.Run(context.Background())
		var fe *core.FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, -1, fe.Generation)
		assert.Equal(t, 4, fe.Individual)
	})

	t.Run("evaluator error", func(t *testing.T) {
		eval := &testkit.Faulty{Inner: testkit.Sphere, After: 10, Err: testkit.ErrInjected}
		opt, err := optimizer.NewHybrid(cfg, eval)
		require.NoError(t, err)

		_, err = opt.Run(context.Background())
		require.ErrorIs(t, err, core.ErrEvaluatorFault)
		require.ErrorIs(t, err, testkit.ErrInjected)
	})
}

func TestHybrid_ContextCancelled(t *testing.T) {
	cfg := hybridConfig(2, 6, 10, -1, 1, 0.1, 1)
	opt, err := optimizer.NewHybrid(cfg, testkit.Sphere)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = opt.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHybrid_StepAfterFinish(t *testing.T) {
	cfg := hybridConfig(2, 4, 2, -1, 1, 0.1, 1)
	opt, err := optimizer.NewHybrid(cfg, testkit.Sphere)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, opt.Step(ctx))
	assert.False(t, opt.Done())
	require.NoError(t, opt.Step(ctx))
	assert.True(t, opt.Done())
	assert.ErrorIs(t, opt.Step(ctx), optimizer.ErrRunFinished)

	// Run on a finished search just reports the outcome
	res, err := opt.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, res.History, 2)
}

func TestHybrid_ResumeMatchesUninterrupted(t *testing.T) {
	cfg := hybridConfig(3, 10, 12, -5.12, 5.12, 0.2, 99)
	ctx := context.Background()

	full, err := optimizer.NewHybrid(cfg, testkit.Rastrigin)
	require.NoError(t, err)
	want, err := full.Run(ctx)
	require.NoError(t, err)

	first, err := optimizer.NewHybrid(cfg, testkit.Rastrigin)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, first.Step(ctx))
	}
	st, err := first.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 5, st.Generation)

	// checkpoints travel as JSON
	data, err := json.Marshal(st)
	require.NoError(t, err)
	var restored optimizer.State
	require.NoError(t, json.Unmarshal(data, &restored))

	second, err := optimizer.Resume(cfg, testkit.Rastrigin, restored)
	require.NoError(t, err)
	got, err := second.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.History, got.History)
	assert.Equal(t, want.BestPosition, got.BestPosition)
	assert.Equal(t, want.BestFitness, got.BestFitness)
	assert.Equal(t, want.Evaluations, got.Evaluations)
}

func TestHybrid_CheckpointOption(t *testing.T) {
	cfg := hybridConfig(2, 6, 12, -1, 1, 0.1, 3)
	var states []optimizer.State
	opt, err := optimizer.NewHybrid(cfg, testkit.Sphere, optimizer.WithCheckpoint(4, func(_ context.Context, st optimizer.State) error {
		states = append(states, st)
		return nil
	}))
	require.NoError(t, err)
	_, err = opt.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, states, 2)
	assert.Equal(t, 4, states[0].Generation)
	assert.Equal(t, 8, states[1].Generation)
	assert.Len(t, states[1].History, 8)
}

func TestResume_RejectsMismatchedState(t *testing.T) {
	cfg := hybridConfig(2, 6, 12, -1, 1, 0.1, 3)
	opt, err := optimizer.NewHybrid(cfg, testkit.Sphere)
	require.NoError(t, err)

	_, err = opt.Snapshot()
	require.Error(t, err)

	require.NoError(t, opt.Step(context.Background()))
	st, err := opt.Snapshot()
	require.NoError(t, err)

	other := cfg
	other.PopulationSize = 8
	_, err = optimizer.Resume(other, testkit.Sphere, st)
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)

	st.Algorithm = "annealing"
	_, err = optimizer.Resume(cfg, testkit.Sphere, st)
	require.Error(t, err)
}
