package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/snow-ghost/wolfpack/config"
	"github.com/snow-ghost/wolfpack/pkg/dashboard"
	"github.com/snow-ghost/wolfpack/pkg/export"
	"github.com/snow-ghost/wolfpack/problems"
	"github.com/snow-ghost/wolfpack/problems/wsn"
	"github.com/snow-ghost/wolfpack/worker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML experiment config")
	outDir := flag.String("out", "", "output directory (overrides config)")
	seed := flag.Uint64("seed", 0, "optimizer seed (overrides config when non-zero)")
	noPlots := flag.Bool("no-plots", false, "skip PNG output")
	watch := flag.Bool("watch", false, "show live progress in the terminal")
	flag.Parse()

	cfg, err := config.Load(*configPath, config.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Problem.Name = problems.WSN
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *seed != 0 {
		cfg.Optimizer.Seed = *seed
	}
	if *watch {
		cfg.Logging.Level = "error"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, !*noPlots, *watch); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, plots, watch bool) error {
	svc, err := worker.NewService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close(context.WithoutCancel(ctx))

	closeScreen := func() {}
	if watch {
		screen, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := screen.Init(); err != nil {
			return err
		}
		closeScreen = screen.Fini
		svc.Solver.Observers = append(svc.Solver.Observers, dashboard.New(screen, "wolfpack: wsn clustering"))
	}
	out, err := solve(ctx, svc, cfg)
	closeScreen()
	if err != nil {
		return err
	}
	return report(ctx, cfg, out, plots)
}

func solve(ctx context.Context, svc *worker.Service, cfg *config.Config) (worker.Outcome, error) {
	rate := cfg.Optimizer.MutationRate
	return svc.Solver.Solve(ctx, worker.Job{
		Problem:         cfg.Problem,
		Algorithm:       cfg.Algorithm,
		Population:      cfg.Optimizer.Population,
		Generations:     cfg.Optimizer.Generations,
		MutationRate:    &rate,
		Seed:            cfg.Optimizer.Seed,
		CacheSize:       cfg.CacheSize,
		CheckpointEvery: cfg.Optimizer.CheckpointEvery,
	})
}

func report(ctx context.Context, cfg *config.Config, out worker.Outcome, plots bool) error {
	// The field is a pure function of the problem settings, so rebuilding it
	// yields the nodes the run was scored on.
	inst, err := problems.Build(ctx, cfg.Problem)
	if err != nil {
		return err
	}
	nodes := inst.WSN.Nodes
	heads := wsn.Heads(out.BestPosition)

	if err := export.WriteWSN(cfg.OutputDir, nodes, heads, out.History); err != nil {
		return err
	}
	if err := export.WriteJSON(filepath.Join(cfg.OutputDir, "result.json"), out); err != nil {
		return err
	}
	if plots {
		if err := export.PlotClusters(filepath.Join(cfg.OutputDir, "clusters.png"),
			"WSN clustering", nodes, heads, wsn.Assign(nodes, heads)); err != nil {
			return err
		}
		if err := export.PlotConvergence(filepath.Join(cfg.OutputDir, "convergence.png"),
			"WSN convergence", export.Series{Name: out.Algorithm, History: out.History}); err != nil {
			return err
		}
	}

	fmt.Printf("run %s: best total distance %.4f after %d evaluations\n", out.RunID, out.BestFitness, out.Evaluations)
	for i, h := range heads {
		fmt.Printf("  head %d: (%.4f, %.4f)\n", i+1, h.X, h.Y)
	}
	fmt.Printf("results written to %s\n", cfg.OutputDir)
	return nil
}
