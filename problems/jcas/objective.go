package jcas

import (
	"context"
	"fmt"

	"github.com/snow-ghost/wolfpack/core"
)

const (
	DefaultUser    = -15.0
	DefaultTarget  = 30.0
	DefaultAlpha   = 0.5
	DefaultPenalty = 0.5
	DefaultWindow  = 5.0
	DefaultBound   = 1.0
)

// Scenario places the communication user and the sensing target and weights
// the terms of the score.
type Scenario struct {
	User    float64 `json:"user" yaml:"user"`
	Target  float64 `json:"target" yaml:"target"`
	Alpha   float64 `json:"alpha" yaml:"alpha"`
	Penalty float64 `json:"penalty" yaml:"penalty"`
	// Window is the half-width in degrees of the main-lobe regions left out
	// of the sidelobe scan.
	Window float64 `json:"window" yaml:"window"`
}

func DefaultScenario() Scenario {
	return Scenario{
		User:    DefaultUser,
		Target:  DefaultTarget,
		Alpha:   DefaultAlpha,
		Penalty: DefaultPenalty,
		Window:  DefaultWindow,
	}
}

// Objective scores a weight vector as
//
//	alpha*G_comm + (1-alpha)*G_sense - penalty*SLL_max
//
// with every term in dB of the unit-norm weights. Higher is better.
type Objective struct {
	Array    Array
	Scenario Scenario

	user, target []complex128
	sidelobes    [][]complex128
	sideAngles   []float64
}

// NewObjective precomputes the steering vectors the score needs.
func NewObjective(arr Array, sc Scenario) (*Objective, error) {
	if err := arr.Validate(); err != nil {
		return nil, err
	}
	if !(sc.Alpha >= 0 && sc.Alpha <= 1) {
		return nil, fmt.Errorf("%w: alpha %g outside [0,1]", core.ErrInvalidConfiguration, sc.Alpha)
	}
	if sc.Window < 0 {
		return nil, fmt.Errorf("%w: negative window %g", core.ErrInvalidConfiguration, sc.Window)
	}

	o := &Objective{
		Array:    arr,
		Scenario: sc,
		user:     arr.Steering(sc.User),
		target:   arr.Steering(sc.Target),
	}
	for _, th := range ScanAngles() {
		if inWindow(th, sc.User, sc.Window) || inWindow(th, sc.Target, sc.Window) {
			continue
		}
		o.sideAngles = append(o.sideAngles, th)
		o.sidelobes = append(o.sidelobes, arr.Steering(th))
	}
	if len(o.sidelobes) == 0 {
		return nil, fmt.Errorf("%w: windows cover the whole scan", core.ErrInvalidConfiguration)
	}
	return o, nil
}

func inWindow(th, center, half float64) bool {
	return th > center-half && th < center+half
}

// SidelobeAngles returns the scan angles that count as sidelobes.
func (o *Objective) SidelobeAngles() []float64 {
	return append([]float64(nil), o.sideAngles...)
}

// Dimension is 2N: real parts then imaginary parts.
func (o *Objective) Dimension() int { return 2 * o.Array.Antennas }

func (o *Objective) Bounds() core.Bounds {
	return core.UniformBounds(o.Dimension(), -DefaultBound, DefaultBound)
}

func (o *Objective) Direction() core.Direction { return core.Maximize }

// Terms holds the components of a score in dB.
type Terms struct {
	Comm        float64 `json:"comm_gain_db"`
	Sense       float64 `json:"sense_gain_db"`
	SidelobeMax float64 `json:"sidelobe_max_db"`
	Score       float64 `json:"score"`
}

// Score normalizes w in place and returns the score terms.
func (o *Objective) Score(w []complex128) (Terms, error) {
	if len(w) != o.Array.Antennas {
		return Terms{}, fmt.Errorf("jcas: %d weights, want %d", len(w), o.Array.Antennas)
	}
	if err := Normalize(w); err != nil {
		return Terms{}, err
	}

	t := Terms{
		Comm:  DB(Gain(w, o.user)),
		Sense: DB(Gain(w, o.target)),
	}
	peak := 0.0
	for _, a := range o.sidelobes {
		peak = max(peak, Gain(w, a))
	}
	t.SidelobeMax = DB(peak)

	sc := o.Scenario
	t.Score = sc.Alpha*t.Comm + (1-sc.Alpha)*t.Sense - sc.Penalty*t.SidelobeMax
	return t, nil
}

func (o *Objective) Evaluate(_ context.Context, position []float64) (float64, error) {
	w, err := DecodeWeights(position)
	if err != nil {
		return 0, err
	}
	t, err := o.Score(w)
	if err != nil {
		return 0, err
	}
	return t.Score, nil
}
