package runner

import (
	"fmt"
	"math"
	"sort"

	"github.com/snow-ghost/wolfpack/core"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the final fitness over a batch of runs.
type Summary struct {
	Algorithm string  `json:"algorithm"`
	Runs      int     `json:"runs"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Median    float64 `json:"median"`
	Best      float64 `json:"best"`
	Worst     float64 `json:"worst"`
	// MeanHistory is the generation-wise mean convergence curve.
	MeanHistory []float64 `json:"mean_history"`
}

// Summarize aggregates results of one algorithm. Best and Worst follow dir.
func Summarize(results []core.Result, dir core.Direction) (Summary, error) {
	if len(results) == 0 {
		return Summary{}, fmt.Errorf("summarize: no results")
	}

	finals := make([]float64, len(results))
	for i, r := range results {
		finals[i] = r.BestFitness
	}
	sorted := append([]float64(nil), finals...)
	sort.Float64s(sorted)

	s := Summary{
		Algorithm: results[0].Algorithm,
		Runs:      len(results),
		Median:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(finals, nil)
	if len(finals) == 1 {
		s.StdDev = 0
	}
	s.Best, s.Worst = sorted[0], sorted[len(sorted)-1]
	if dir == core.Maximize {
		s.Best, s.Worst = s.Worst, s.Best
	}

	gens := math.MaxInt
	for _, r := range results {
		gens = min(gens, len(r.History))
	}
	s.MeanHistory = make([]float64, gens)
	column := make([]float64, len(results))
	for g := range s.MeanHistory {
		for i, r := range results {
			column[i] = r.History[g]
		}
		s.MeanHistory[g] = stat.Mean(column, nil)
	}
	return s, nil
}
