package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/snow-ghost/wolfpack/config"
	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/pkg/cache"
	"github.com/snow-ghost/wolfpack/pkg/export"
	"github.com/snow-ghost/wolfpack/pkg/store"
	"github.com/snow-ghost/wolfpack/problems"
	"github.com/snow-ghost/wolfpack/runner"
	"github.com/snow-ghost/wolfpack/worker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML experiment config")
	runs := flag.Int("runs", 0, "independent runs per algorithm (overrides config when non-zero)")
	algorithms := flag.String("algorithms", strings.Join(optimizer.Algorithms(), ","), "comma-separated algorithms to compare")
	flag.Parse()

	cfg, err := config.Load(*configPath, config.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *runs > 0 {
		cfg.Runs = *runs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, strings.Split(*algorithms, ",")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, algorithms []string) error {
	svc, err := worker.NewService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close(context.WithoutCancel(ctx))

	inst, err := problems.Build(ctx, cfg.Problem)
	if err != nil {
		return err
	}
	defer inst.Close(context.WithoutCancel(ctx))

	newEval := func() core.Evaluator {
		if cfg.CacheSize <= 0 {
			return inst
		}
		c, err := cache.NewEvaluator(inst, &cache.CacheConfig{MaxSize: cfg.CacheSize})
		if err != nil {
			// lru only rejects non-positive sizes
			panic(err)
		}
		return c
	}

	batch := runner.Batch{Runs: cfg.Runs, Parallelism: cfg.Parallelism, BaseSeed: cfg.Optimizer.Seed}
	cmp, err := runner.Compare(ctx, batch, cfg.OptimizerConfig(inst), algorithms, newEval,
		optimizer.WithLogger(svc.Logger.GetZap()),
		optimizer.WithLogEvery(0),
		optimizer.WithObserver(svc.Solver.Metrics),
		optimizer.WithTracer(svc.Tracer()),
	)
	if err != nil {
		return err
	}

	for _, alg := range cmp.Algorithms {
		for _, res := range cmp.Results[alg] {
			res.RunID = store.NewRunID()
			if err := svc.Solver.Store.SaveRun(ctx, res); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	if err := export.WriteJSON(filepath.Join(cfg.OutputDir, "comparison.json"), cmp); err != nil {
		return err
	}
	var series []export.Series
	for _, alg := range cmp.Algorithms {
		series = append(series, export.Series{Name: alg, History: cmp.Summaries[alg].MeanHistory})
	}
	title := fmt.Sprintf("%s: mean convergence over %d runs", inst.Name, cfg.Runs)
	if err := export.PlotConvergence(filepath.Join(cfg.OutputDir, "comparison.png"), title, series...); err != nil {
		return err
	}

	fmt.Printf("%-8s %12s %12s %12s %12s %12s\n", "algo", "mean", "std", "median", "best", "worst")
	for _, alg := range cmp.Algorithms {
		s := cmp.Summaries[alg]
		fmt.Printf("%-8s %12.4f %12.4f %12.4f %12.4f %12.4f\n", alg, s.Mean, s.StdDev, s.Median, s.Best, s.Worst)
	}
	return nil
}
