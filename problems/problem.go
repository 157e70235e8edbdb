// Package problems builds the objective functions the optimizers can run.
package problems

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/interp/wasm"
	"github.com/snow-ghost/wolfpack/problems/jcas"
	"github.com/snow-ghost/wolfpack/problems/wsn"
)

const (
	Sphere    = "sphere"
	Rastrigin = "rastrigin"
	WSN       = "wsn"
	JCAS      = "jcas"
	WASM      = "wasm"
)

// Spec selects and parameterizes a problem.
type Spec struct {
	Name string `json:"name" yaml:"name"`

	// Benchmark and wasm problems.
	Dimension int            `json:"dimension,omitempty" yaml:"dimension"`
	Lower     float64        `json:"lower,omitempty" yaml:"lower"`
	Upper     float64        `json:"upper,omitempty" yaml:"upper"`
	Direction core.Direction `json:"direction,omitempty" yaml:"direction"`

	WSN  WSNSpec  `json:"wsn,omitempty" yaml:"wsn"`
	JCAS JCASSpec `json:"jcas,omitempty" yaml:"jcas"`
	WASM WASMSpec `json:"wasm,omitempty" yaml:"wasm"`
}

type WSNSpec struct {
	Nodes    int     `json:"nodes" yaml:"nodes"`
	Clusters int     `json:"clusters" yaml:"clusters"`
	Area     float64 `json:"area" yaml:"area"`
	// FieldSeed fixes the node layout independently of the optimizer seed.
	FieldSeed uint64 `json:"field_seed" yaml:"field_seed"`
}

type JCASSpec struct {
	Array    jcas.Array    `json:"array" yaml:"array"`
	Scenario jcas.Scenario `json:"scenario" yaml:"scenario"`
}

// WASMSpec loads a fitness module either from Path or inline bytes.
type WASMSpec struct {
	Path   string `json:"path,omitempty" yaml:"path"`
	Module []byte `json:"module,omitempty" yaml:"-"`
}

// DefaultSpec returns the WSN deployment of 100 nodes and 5 clusters.
func DefaultSpec() Spec {
	return Spec{
		Name:      WSN,
		Dimension: 10,
		Lower:     -5.12,
		Upper:     5.12,
		WSN: WSNSpec{
			Nodes:     wsn.DefaultNodes,
			Clusters:  wsn.DefaultClusters,
			Area:      wsn.DefaultArea,
			FieldSeed: 42,
		},
		JCAS: JCASSpec{
			Array:    jcas.DefaultArray(),
			Scenario: jcas.DefaultScenario(),
		},
	}
}

// Instance is a ready-to-run problem.
type Instance struct {
	core.Evaluator
	Name      string
	Dimension int
	Bounds    core.Bounds
	Direction core.Direction

	// Exactly one of these is set for the domain problems.
	WSN  *wsn.Objective
	JCAS *jcas.Objective

	closer func(context.Context) error
}

// Close releases resources held by the evaluator.
func (in *Instance) Close(ctx context.Context) error {
	if in.closer == nil {
		return nil
	}
	return in.closer(ctx)
}

type builder func(ctx context.Context, s Spec) (*Instance, error)

var builders = map[string]builder{
	Sphere:    benchmark(Sphere, sphere),
	Rastrigin: benchmark(Rastrigin, rastrigin),
	WSN:       buildWSN,
	JCAS:      buildJCAS,
	WASM:      buildWASM,
}

// Names lists the known problem names.
func Names() []string {
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs the problem described by s.
func Build(ctx context.Context, s Spec) (*Instance, error) {
	b, ok := builders[s.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown problem %q", core.ErrInvalidConfiguration, s.Name)
	}
	return b(ctx, s)
}

func benchmark(name string, f core.EvaluatorFunc) builder {
	return func(_ context.Context, s Spec) (*Instance, error) {
		if s.Dimension < 1 {
			return nil, fmt.Errorf("%w: dimension %d < 1", core.ErrInvalidConfiguration, s.Dimension)
		}
		b := core.UniformBounds(s.Dimension, s.Lower, s.Upper)
		if err := b.Validate(s.Dimension); err != nil {
			return nil, err
		}
		return &Instance{
			Evaluator: f,
			Name:      name,
			Dimension: s.Dimension,
			Bounds:    b,
			Direction: core.Minimize,
		}, nil
	}
}

func sphere(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return s
}

func rastrigin(x []float64) float64 {
	s := 10.0 * float64(len(x))
	for _, v := range x {
		s += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return s
}

func buildWSN(_ context.Context, s Spec) (*Instance, error) {
	rng := rand.New(rand.NewPCG(s.WSN.FieldSeed, s.WSN.FieldSeed))
	if s.WSN.Nodes < 1 {
		return nil, fmt.Errorf("%w: nodes %d < 1", core.ErrInvalidConfiguration, s.WSN.Nodes)
	}
	nodes := wsn.GenerateField(rng, s.WSN.Nodes, s.WSN.Area)
	obj, err := wsn.NewObjective(nodes, s.WSN.Clusters, s.WSN.Area)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Evaluator: obj,
		Name:      WSN,
		Dimension: obj.Dimension(),
		Bounds:    obj.Bounds(),
		Direction: obj.Direction(),
		WSN:       obj,
	}, nil
}

func buildJCAS(_ context.Context, s Spec) (*Instance, error) {
	obj, err := jcas.NewObjective(s.JCAS.Array, s.JCAS.Scenario)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Evaluator: obj,
		Name:      JCAS,
		Dimension: obj.Dimension(),
		Bounds:    obj.Bounds(),
		Direction: obj.Direction(),
		JCAS:      obj,
	}, nil
}

func buildWASM(ctx context.Context, s Spec) (*Instance, error) {
	module := s.WASM.Module
	if len(module) == 0 {
		if s.WASM.Path == "" {
			return nil, fmt.Errorf("%w: wasm problem needs a module or a path", core.ErrInvalidConfiguration)
		}
		data, err := os.ReadFile(s.WASM.Path)
		if err != nil {
			return nil, fmt.Errorf("read wasm module: %w", err)
		}
		module = data
	}

	b := core.UniformBounds(s.Dimension, s.Lower, s.Upper)
	if err := b.Validate(s.Dimension); err != nil {
		return nil, err
	}
	eval, err := wasm.NewEvaluator(ctx, module, s.Dimension)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Evaluator: eval,
		Name:      WASM,
		Dimension: s.Dimension,
		Bounds:    b,
		Direction: s.Direction,
		closer:    eval.Close,
	}, nil
}
