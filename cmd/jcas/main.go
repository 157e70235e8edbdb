package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/snow-ghost/wolfpack/config"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/pkg/dashboard"
	"github.com/snow-ghost/wolfpack/pkg/export"
	"github.com/snow-ghost/wolfpack/problems"
	"github.com/snow-ghost/wolfpack/problems/jcas"
	"github.com/snow-ghost/wolfpack/worker"
)

// patternFloor clips the plotted beampatterns.
const patternFloor = -60

func main() {
	configPath := flag.String("config", "", "path to YAML experiment config")
	outDir := flag.String("out", "", "output directory (overrides config)")
	antennas := flag.Int("antennas", 0, "number of array elements (overrides config when non-zero)")
	noPlots := flag.Bool("no-plots", false, "skip PNG output")
	watch := flag.Bool("watch", false, "show live progress in the terminal")
	flag.Parse()

	cfg, err := config.Load(*configPath, config.DefaultJCAS())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Problem.Name = problems.JCAS
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *antennas > 0 {
		cfg.Problem.JCAS.Array.Antennas = *antennas
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

type report struct {
	Outcomes map[string]worker.Outcome `json:"outcomes"`
	ILS      jcas.Terms                `json:"ils"`
	ILSError []float64                 `json:"ils_error"`
}

// run optimizes the beamformer with both wolf-pack variants and the least
// squares benchmark.
func run(ctx context.Context, cfg *config.Config, plots, watch bool) error {
	svc, err := worker.NewService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close(context.WithoutCancel(ctx))

	obj, err := jcas.NewObjective(cfg.Problem.JCAS.Array, cfg.Problem.JCAS.Scenario)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}

	outcomes, err := solveAll(ctx, svc, cfg, watch)
	if err != nil {
		return err
	}

	rep := report{Outcomes: make(map[string]worker.Outcome)}
	var series []export.Series
	for _, alg := range optimizer.Algorithms() {
		out := outcomes[alg]
		rep.Outcomes[alg] = out
		series = append(series, export.Series{Name: alg, History: out.History})

		fmt.Printf("%-7s score %.4f  comm %.2f dB  sense %.2f dB  sidelobe %.2f dB\n",
			alg, out.JCAS.Score, out.JCAS.Comm, out.JCAS.Sense, out.JCAS.SidelobeMax)

		if plots {
			w, err := jcas.DecodeWeights(out.BestPosition)
			if err != nil {
				return err
			}
			if err := plotPattern(cfg, obj, w, alg); err != nil {
				return err
			}
		}
	}

	rng := rand.New(rand.NewPCG(cfg.Optimizer.Seed, 0))
	ils, err := jcas.ILS(obj.Array, obj.Scenario, cfg.ILSIterations, rng)
	if err != nil {
		return err
	}
	if rep.ILS, err = obj.Score(ils.Weights); err != nil {
		return err
	}
	rep.ILSError = ils.History
	fmt.Printf("%-7s score %.4f  comm %.2f dB  sense %.2f dB  sidelobe %.2f dB\n",
		"ils", rep.ILS.Score, rep.ILS.Comm, rep.ILS.Sense, rep.ILS.SidelobeMax)

	if plots {
		if err := plotPattern(cfg, obj, ils.Weights, "ils"); err != nil {
			return err
		}
		if err := export.PlotConvergence(filepath.Join(cfg.OutputDir, "jcas_convergence.png"),
			"JCAS convergence", series...); err != nil {
			return err
		}
		if err := export.PlotConvergence(filepath.Join(cfg.OutputDir, "ils_convergence.png"),
			"ILS least squares error", export.Series{Name: "ils", History: ils.History}); err != nil {
			return err
		}
	}
	return export.WriteJSON(filepath.Join(cfg.OutputDir, "jcas_report.json"), rep)
}

// solveAll runs every algorithm on the configured array, drawing progress on
// the terminal while watch is set.
func solveAll(ctx context.Context, svc *worker.Service, cfg *config.Config, watch bool) (map[string]worker.Outcome, error) {
	if watch {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, err
		}
		if err := screen.Init(); err != nil {
			return nil, err
		}
		defer screen.Fini()
		svc.Solver.Observers = append(svc.Solver.Observers, dashboard.New(screen, "wolfpack: jcas beamforming"))
	}

	outcomes := make(map[string]worker.Outcome)
	for _, alg := range optimizer.Algorithms() {
		rate := cfg.Optimizer.MutationRate
		out, err := svc.Solver.Solve(ctx, worker.Job{
			Problem:     cfg.Problem,
			Algorithm:   alg,
			Population:  cfg.Optimizer.Population,
			Generations: cfg.Optimizer.Generations,
			// ignored by the standard variant
			MutationRate: &rate,
			Seed:         cfg.Optimizer.Seed,
			CacheSize:    cfg.CacheSize,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", alg, err)
		}
		outcomes[alg] = out
	}
	return outcomes, nil
}

func plotPattern(cfg *config.Config, obj *jcas.Objective, w []complex128, name string) error {
	thetas := jcas.Angles(-90, 90, 720)
	db := obj.Array.NormalizedPatternDB(w, thetas)
	title := fmt.Sprintf("JCAS beampattern: %s (N=%d)", name, obj.Array.Antennas)
	return export.PlotBeampattern(filepath.Join(cfg.OutputDir, "beampattern_"+name+".png"), title, thetas, db, patternFloor,
		export.Marker{Name: "User", X: obj.Scenario.User},
		export.Marker{Name: "Target", X: obj.Scenario.Target},
	)
}
