package tensor

import "math"

// Eps is the floor applied before every log so that zero-probability entries
// never produce -Inf or NaN downstream.
const Eps = 1e-16

// #region log-domain

// LogStable returns ln(max(x, Eps)).
func LogStable(x float64) float64 {
	if x < Eps {
		x = Eps
	}
	return math.Log(x)
}

// LogVec applies LogStable elementwise, returning a new slice.
func LogVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = LogStable(x)
	}
	return out
}

// Softmax exponentiates and renormalizes, shifting by the max for stability.
func Softmax(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	var sum float64
	for i, x := range v {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// #endregion log-domain

// #region distributions

// Entropy returns the Shannon entropy -sum p ln p of a categorical vector.
func Entropy(p []float64) float64 {
	var h float64
	for _, x := range p {
		if x > Eps {
			h -= x * math.Log(x)
		}
	}
	return h
}

// Sum returns the sum of all elements.
func Sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// Normalize scales v in place so it sums to 1. A zero vector becomes uniform.
func Normalize(v []float64) {
	s := Sum(v)
	if s <= 0 {
		u := 1.0 / float64(len(v))
		for i := range v {
			v[i] = u
		}
		return
	}
	for i := range v {
		v[i] /= s
	}
}

// IsNormalized reports whether v sums to 1 within tol.
func IsNormalized(v []float64, tol float64) bool {
	return math.Abs(Sum(v)-1) <= tol
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float64) float64 {
	var s float64
	for i, x := range a {
		s += x * b[i]
	}
	return s
}

// MaxAbsDiff returns max_i |a[i]-b[i]|.
func MaxAbsDiff(a, b []float64) float64 {
	var m float64
	for i, x := range a {
		d := math.Abs(x - b[i])
		if d > m {
			m = d
		}
	}
	return m
}

// ArgMax returns the index of the largest element, lowest index on ties.
func ArgMax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}

// #endregion distributions
