// Package jcas models joint communication and sensing beamforming on a
// uniform linear array: one weight vector has to serve a communication user
// and a sensing target at once while keeping sidelobes low.
package jcas

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/snow-ghost/wolfpack/core"
)

const (
	SpeedOfLight = 3e8

	DefaultAntennas  = 64
	DefaultFrequency = 28e9
	DefaultSpacing   = 0.5

	// floor added to linear power before converting to dB
	powerFloor = 1e-12
)

// Array is a uniform linear array. SpacingRatio is the element spacing in
// wavelengths.
type Array struct {
	Antennas     int     `json:"antennas" yaml:"antennas"`
	Frequency    float64 `json:"frequency" yaml:"frequency"`
	SpacingRatio float64 `json:"spacing_ratio" yaml:"spacing_ratio"`
}

// DefaultArray is a 64-element half-wavelength array at 28 GHz.
func DefaultArray() Array {
	return Array{Antennas: DefaultAntennas, Frequency: DefaultFrequency, SpacingRatio: DefaultSpacing}
}

func (a Array) Validate() error {
	if a.Antennas < 1 {
		return fmt.Errorf("%w: antennas %d < 1", core.ErrInvalidConfiguration, a.Antennas)
	}
	if !(a.Frequency > 0) || !(a.SpacingRatio > 0) {
		return fmt.Errorf("%w: frequency and spacing must be positive", core.ErrInvalidConfiguration)
	}
	return nil
}

// Wavelength in metres.
func (a Array) Wavelength() float64 { return SpeedOfLight / a.Frequency }

// phaseStep is k*d, the inter-element phase per unit sin(theta).
func (a Array) phaseStep() float64 {
	return 2 * math.Pi * a.SpacingRatio
}

// Steering returns a(theta) with a_n = exp(j*k*d*n*sin(theta)), theta in
// degrees.
func (a Array) Steering(theta float64) []complex128 {
	s := math.Sin(theta * math.Pi / 180)
	kd := a.phaseStep()
	v := make([]complex128, a.Antennas)
	for n := range v {
		v[n] = cmplx.Rect(1, kd*float64(n)*s)
	}
	return v
}

// Gain returns |w^H a|^2 for a precomputed steering vector.
func Gain(w, steering []complex128) float64 {
	var af complex128
	for n, wn := range w {
		af += cmplx.Conj(wn) * steering[n]
	}
	r, i := real(af), imag(af)
	return r*r + i*i
}

// Beampattern returns the power gain of w at every angle in degrees.
func (a Array) Beampattern(w []complex128, thetas []float64) []float64 {
	p := make([]float64, len(thetas))
	for i, th := range thetas {
		p[i] = Gain(w, a.Steering(th))
	}
	return p
}

// NormalizedPatternDB returns the beampattern in dB relative to its peak.
func (a Array) NormalizedPatternDB(w []complex128, thetas []float64) []float64 {
	p := a.Beampattern(w, thetas)
	peak := math.Inf(-1)
	for i, v := range p {
		p[i] = DB(v)
		peak = max(peak, p[i])
	}
	for i := range p {
		p[i] -= peak
	}
	return p
}

// DB converts linear power to decibels with a small floor.
func DB(power float64) float64 {
	return 10 * math.Log10(power+powerFloor)
}

// Angles returns n evenly spaced angles from lo to hi inclusive, or nil
// when n < 1.
func Angles(lo, hi float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// ScanAngles is the one-degree grid over [-90, 90].
func ScanAngles() []float64 { return Angles(-90, 90, 181) }
