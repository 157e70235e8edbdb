package jcas

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrZeroWeights is returned when a weight vector cannot be normalized.
var ErrZeroWeights = errors.New("jcas: zero-norm weight vector")

// DecodeWeights reads a position laid out as [re_0..re_{N-1}, im_0..im_{N-1}].
func DecodeWeights(position []float64) ([]complex128, error) {
	if len(position)%2 != 0 {
		return nil, fmt.Errorf("jcas: odd position length %d", len(position))
	}
	n := len(position) / 2
	w := make([]complex128, n)
	for i := range w {
		w[i] = complex(position[i], position[n+i])
	}
	return w, nil
}

// EncodeWeights is the inverse of DecodeWeights.
func EncodeWeights(w []complex128) []float64 {
	n := len(w)
	pos := make([]float64, 2*n)
	for i, v := range w {
		pos[i] = real(v)
		pos[n+i] = imag(v)
	}
	return pos
}

// Norm is the Euclidean norm of w.
func Norm(w []complex128) float64 {
	s := 0.0
	for _, v := range w {
		a := cmplx.Abs(v)
		s += a * a
	}
	return math.Sqrt(s)
}

// Normalize scales w to unit norm in place.
func Normalize(w []complex128) error {
	norm := Norm(w)
	if norm == 0 || math.IsNaN(norm) {
		return ErrZeroWeights
	}
	inv := complex(1/norm, 0)
	for i := range w {
		w[i] *= inv
	}
	return nil
}
