package vector

import "math"

// dot returns the inner product of two vectors. For L2-normalized vectors
// this equals cosine similarity.
func dot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalizeL2 scales x in place to unit L2 norm. A zero vector is unchanged.
func normalizeL2(x []float64) {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range x {
		x[i] *= inv
	}
}
