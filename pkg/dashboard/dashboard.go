// Package dashboard renders live optimizer progress to a terminal screen.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/snow-ghost/wolfpack/core"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Dashboard is a core.Observer that redraws a small status panel after every
// generation. It is safe for use from several runs at once.
type Dashboard struct {
	mu      sync.Mutex
	screen  tcell.Screen
	title   string
	history []float64
	last    core.Generation
}

// New returns a dashboard drawing on an initialised screen.
func New(screen tcell.Screen, title string) *Dashboard {
	return &Dashboard{screen: screen, title: title}
}

// ObserveGeneration records the generation and redraws the screen.
func (d *Dashboard) ObserveGeneration(_ context.Context, g core.Generation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if g.Index == 0 {
		d.history = d.history[:0]
	}
	d.history = append(d.history, g.BestFitness)
	d.last = g
	d.draw()
}

// History returns a copy of the best-fitness values seen in the current run.
func (d *Dashboard) History() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]float64, len(d.history))
	copy(out, d.history)
	return out
}

func (d *Dashboard) draw() {
	w, _ := d.screen.Size()
	d.screen.Clear()

	bold := tcell.StyleDefault.Bold(true)
	d.put(0, 0, d.title, bold)

	g := d.last
	line := fmt.Sprintf("%s  gen %d/%d  a=%.3f  best=%.6g  evals=%d",
		g.Algorithm, g.Index+1, g.Total, g.Coefficient, g.BestFitness, g.Evaluations)
	d.put(0, 1, line, tcell.StyleDefault)

	barWidth := w - 2
	if barWidth > 0 {
		done := 0
		if g.Total > 0 {
			done = (g.Index + 1) * barWidth / g.Total
		}
		d.put(0, 2, "[", tcell.StyleDefault)
		green := tcell.StyleDefault.Foreground(tcell.ColorGreen)
		for x := 0; x < barWidth; x++ {
			r := ' '
			if x < done {
				r = '='
			}
			d.screen.SetContent(x+1, 2, r, nil, green)
		}
		d.put(barWidth+1, 2, "]", tcell.StyleDefault)
	}

	yellow := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	spark := sparkline(d.history, w)
	for x, r := range spark {
		d.screen.SetContent(x, 3, r, nil, yellow)
	}
	d.screen.Show()
}

func (d *Dashboard) put(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		d.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// sparkline maps the tail of values onto eight block heights. Lower fitness
// draws taller bars so convergence reads left to right as a rising line.
func sparkline(values []float64, width int) []rune {
	if width <= 0 || len(values) == 0 {
		return nil
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]rune, len(values))
	top := len(sparkRunes) - 1
	for i, v := range values {
		switch {
		case math.IsInf(v, 0) || math.IsNaN(v):
			out[i] = sparkRunes[0]
		case hi <= lo:
			out[i] = sparkRunes[top]
		default:
			out[i] = sparkRunes[int(math.Round((hi-v)/(hi-lo)*float64(top)))]
		}
	}
	return out
}
