package runner_test

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/runner"
	"github.com/snow-ghost/wolfpack/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sphereConfig() optimizer.Config {
	return optimizer.Config{
		Dimension:      3,
		PopulationSize: 10,
		Generations:    20,
		Bounds:         core.UniformBounds(3, -5, 5),
		MutationRate:   0.1,
	}
}

func TestBatch_MatchesSequentialRuns(t *testing.T) {
	cfg := sphereConfig()
	factory := func(_ int, seed uint64) (core.Optimizer, error) {
		c := cfg
		c.Seed = seed
		return optimizer.NewHybrid(c, testkit.Rastrigin)
	}

	results, err := runner.Batch{Runs: 6, Parallelism: 3, BaseSeed: 100}.Run(context.Background(), factory)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i, r := range results {
		assert.Equal(t, uint64(100+i), r.Seed)
		opt, err := factory(i, uint64(100+i))
		require.NoError(t, err)
		want, err := opt.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want.History, r.History)
	}
}

func TestBatch_Errors(t *testing.T) {
	_, err := runner.Batch{Runs: 0}.Run(context.Background(), nil)
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)

	cfg := sphereConfig()
	_, err = runner.Batch{Runs: 4, Parallelism: 2}.Run(context.Background(), func(run int, seed uint64) (core.Optimizer, error) {
		c := cfg
		c.Seed = seed
		if run == 2 {
			return optimizer.NewHybrid(c, testkit.Constant(math.Inf(1)))
		}
		return optimizer.NewHybrid(c, testkit.Sphere)
	})
	require.ErrorIs(t, err, core.ErrEvaluatorFault)
	assert.Contains(t, err.Error(), "run 2")
}

func TestSummarize(t *testing.T) {
	results := []core.Result{
		{Algorithm: "hybrid", BestFitness: 1, History: []float64{4, 1}},
		{Algorithm: "hybrid", BestFitness: 3, History: []float64{6, 3, 3}},
		{Algorithm: "hybrid", BestFitness: 2, History: []float64{5, 2}},
	}

	s, err := runner.Summarize(results, core.Minimize)
	require.NoError(t, err)
	assert.Equal(t, "hybrid", s.Algorithm)
	assert.Equal(t, 3, s.Runs)
	assert.InDelta(t, 2, s.Mean, 1e-12)
	assert.InDelta(t, 1, s.StdDev, 1e-12)
	assert.Equal(t, 2.0, s.Median)
	assert.Equal(t, 1.0, s.Best)
	assert.Equal(t, 3.0, s.Worst)
	assert.Equal(t, []float64{5, 2}, s.MeanHistory)

	s, err = runner.Summarize(results, core.Maximize)
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Best)
	assert.Equal(t, 1.0, s.Worst)

	s, err = runner.Summarize(results[:1], core.Minimize)
	require.NoError(t, err)
	assert.Zero(t, s.StdDev)

	_, err = runner.Summarize(nil, core.Minimize)
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	cfg := sphereConfig()
	algs := optimizer.Algorithms()
	c, err := runner.Compare(context.Background(), runner.Batch{Runs: 4, BaseSeed: 1}, cfg, algs,
		func() core.Evaluator { return testkit.Sphere })
	require.NoError(t, err)

	for _, alg := range algs {
		require.Len(t, c.Results[alg], 4)
		for i, r := range c.Results[alg] {
			assert.Equal(t, alg, r.Algorithm)
			assert.Equal(t, uint64(1+i), r.Seed)
		}
		s := c.Summaries[alg]
		assert.Equal(t, 4, s.Runs)
		assert.Len(t, s.MeanHistory, cfg.Generations)
		assert.LessOrEqual(t, s.Best, s.Mean)
	}

	_, err = runner.Compare(context.Background(), runner.Batch{Runs: 1}, cfg, []string{"pso"},
		func() core.Evaluator { return testkit.Sphere })
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestCompare_RejectsSharedSource(t *testing.T) {
	cfg := sphereConfig()
	eval := func() core.Evaluator { return testkit.Sphere }

	_, err := runner.Compare(context.Background(), runner.Batch{Runs: 4, Parallelism: 4}, cfg,
		optimizer.Algorithms(), eval, optimizer.WithSource(rand.NewPCG(1, 1)))
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)

	// options without a source still pass through
	rec := &testkit.Recorder{}
	c, err := runner.Compare(context.Background(), runner.Batch{Runs: 2, BaseSeed: 3}, cfg,
		[]string{optimizer.AlgorithmHybrid}, eval, optimizer.WithObserver(rec), optimizer.WithLogEvery(0))
	require.NoError(t, err)
	require.Len(t, c.Results[optimizer.AlgorithmHybrid], 2)
	assert.Len(t, rec.Generations, 2*cfg.Generations)
}
