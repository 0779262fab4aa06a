// Package vector provides cosine similarity and an in-memory embedding index.
package vector

import "math"

// Cosine returns the cosine similarity of two vectors. Vectors of unequal
// length, empty vectors, and vectors with a zero norm score exactly 0 -
// a hard mismatch, not an error.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum)
}
