package jcas

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"github.com/snow-ghost/wolfpack/core"
	"gonum.org/v1/gonum/mat"
)

// DefaultILSIterations matches the benchmark runs.
const DefaultILSIterations = 50

// ILSResult is the outcome of the iterative least-squares benchmark.
type ILSResult struct {
	Weights []complex128 `json:"-"`
	// History is the pattern error after every iteration.
	History []float64 `json:"history"`
}

// DesiredMagnitude is 1 on the scan sample nearest to each of the given
// angles and its immediate neighbours, 0 elsewhere.
func DesiredMagnitude(scan []float64, angles ...float64) []float64 {
	d := make([]float64, len(scan))
	for _, th := range angles {
		idx := 0
		for i, s := range scan {
			if math.Abs(s-th) < math.Abs(scan[idx]-th) {
				idx = i
			}
		}
		for i := max(0, idx-1); i <= min(len(scan)-1, idx+1); i++ {
			d[i] = 1
		}
	}
	return d
}

// ILS fits |A^H w| to the desired two-lobe magnitude by alternating a
// least-squares solve for w with a phase update taken from the achieved
// pattern. The complex system is solved through its real embedding
// [Re -Im; Im Re].
func ILS(arr Array, sc Scenario, iterations int, rng *rand.Rand) (ILSResult, error) {
	if err := arr.Validate(); err != nil {
		return ILSResult{}, err
	}
	if iterations < 1 {
		return ILSResult{}, fmt.Errorf("%w: iterations %d < 1", core.ErrInvalidConfiguration, iterations)
	}

	scan := ScanAngles()
	m, n := len(scan), arr.Antennas
	if n > m {
		return ILSResult{}, fmt.Errorf("%w: %d antennas exceed %d scan samples", core.ErrInvalidConfiguration, n, m)
	}
	desired := DesiredMagnitude(scan, sc.User, sc.Target)

	// B = A^H, one row per scan angle
	e := mat.NewDense(2*m, 2*n, nil)
	for r, th := range scan {
		for c, a := range arr.Steering(th) {
			b := cmplx.Conj(a)
			e.Set(r, c, real(b))
			e.Set(r, n+c, -imag(b))
			e.Set(m+r, c, imag(b))
			e.Set(m+r, n+c, real(b))
		}
	}
	var qr mat.QR
	qr.Factorize(e)

	phase := make([]float64, m)
	for i := range phase {
		phase[i] = 2 * math.Pi * rng.Float64()
	}

	y := mat.NewVecDense(2*m, nil)
	var x, pattern mat.VecDense
	w := make([]complex128, n)
	history := make([]float64, 0, iterations)

	for it := 0; it < iterations; it++ {
		for i := 0; i < m; i++ {
			s, c := math.Sincos(phase[i])
			y.SetVec(i, desired[i]*c)
			y.SetVec(m+i, desired[i]*s)
		}
		if err := qr.SolveVecTo(&x, false, y); err != nil {
			return ILSResult{}, fmt.Errorf("jcas: least squares at iteration %d: %w", it, err)
		}
		for i := range w {
			w[i] = complex(x.AtVec(i), x.AtVec(n+i))
		}
		if err := Normalize(w); err != nil {
			return ILSResult{}, fmt.Errorf("jcas: iteration %d: %w", it, err)
		}
		x.ScaleVec(1/mat.Norm(&x, 2), &x)

		pattern.MulVec(e, &x)
		sum := 0.0
		for i := 0; i < m; i++ {
			p := complex(pattern.AtVec(i), pattern.AtVec(m+i))
			phase[i] = cmplx.Phase(p)
			diff := cmplx.Abs(p) - desired[i]
			sum += diff * diff
		}
		history = append(history, math.Sqrt(sum))
	}

	return ILSResult{Weights: w, History: history}, nil
}
