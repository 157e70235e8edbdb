// Package wsn models cluster-head placement in a wireless sensor network:
// a position encodes the coordinates of the cluster heads and the objective
// is the total distance from every sensor node to its nearest head.
package wsn

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/snow-ghost/wolfpack/core"
)

const (
	DefaultNodes    = 100
	DefaultClusters = 5
	DefaultArea     = 100.0
)

// Point is a location in the deployment area.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// GenerateField places n nodes uniformly in an area x area square.
func GenerateField(rng *rand.Rand, n int, area float64) []Point {
	nodes := make([]Point, n)
	for i := range nodes {
		nodes[i] = Point{X: rng.Float64() * area, Y: rng.Float64() * area}
	}
	return nodes
}

// Heads decodes a position (x1, y1, x2, y2, ...) into cluster heads.
func Heads(position []float64) []Point {
	heads := make([]Point, len(position)/2)
	for k := range heads {
		heads[k] = Point{X: position[2*k], Y: position[2*k+1]}
	}
	return heads
}

// Assign labels every node with the index of its nearest head. Ties go to
// the lower index.
func Assign(nodes, heads []Point) []int {
	labels := make([]int, len(nodes))
	for i, n := range nodes {
		labels[i], _ = nearest(n, heads)
	}
	return labels
}

func nearest(p Point, heads []Point) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for k, h := range heads {
		if d := p.Dist(h); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best, bestDist
}

// Objective scores cluster-head placements. Lower is better.
type Objective struct {
	Nodes    []Point
	Clusters int
	Area     float64
}

// NewObjective validates the field and returns the objective.
func NewObjective(nodes []Point, clusters int, area float64) (*Objective, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no sensor nodes", core.ErrInvalidConfiguration)
	}
	if clusters < 1 {
		return nil, fmt.Errorf("%w: clusters %d < 1", core.ErrInvalidConfiguration, clusters)
	}
	if !(area > 0) {
		return nil, fmt.Errorf("%w: area %g must be positive", core.ErrInvalidConfiguration, area)
	}
	return &Objective{Nodes: nodes, Clusters: clusters, Area: area}, nil
}

// Dimension is two coordinates per cluster head.
func (o *Objective) Dimension() int { return 2 * o.Clusters }

// Bounds keeps every head inside the deployment area.
func (o *Objective) Bounds() core.Bounds {
	return core.UniformBounds(o.Dimension(), 0, o.Area)
}

// Direction is always minimize.
func (o *Objective) Direction() core.Direction { return core.Minimize }

// Cost is the sum over nodes of the distance to the nearest head.
func (o *Objective) Cost(position []float64) float64 {
	heads := Heads(position)
	total := 0.0
	for _, n := range o.Nodes {
		_, d := nearest(n, heads)
		total += d
	}
	return total
}

func (o *Objective) Evaluate(_ context.Context, position []float64) (float64, error) {
	if len(position) != o.Dimension() {
		return 0, fmt.Errorf("wsn: position of dimension %d, want %d", len(position), o.Dimension())
	}
	return o.Cost(position), nil
}
