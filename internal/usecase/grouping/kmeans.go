package grouping

import (
	"math"
	"math/rand"
)

// kmeansSeed fixes the subdivision clustering so repeated runs over the
// same inputs split groups identically.
const kmeansSeed = 42

// kmeans runs Lloyd's algorithm with a seeded initialization and returns
// one cluster label in [0, k) per vector. Deterministic for a fixed input
// order and seed.
func kmeans(vectors [][]float32, k int, seed int64) []int {
	n := len(vectors)
	labels := make([]int, n)
	if n == 0 || k <= 1 {
		return labels
	}
	if k > n {
		k = n
	}

	dim := len(vectors[0])
	rng := rand.New(rand.NewSource(seed))

	// Initialize centroids from a seeded permutation of the inputs.
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = make([]float64, dim)
		for d, x := range vectors[perm[c]] {
			centroids[c][d] = float64(x)
		}
	}

	const maxIterations = 50
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := 0
			bestDist := math.MaxFloat64
			for c := range centroids {
				dist := squaredDist(v, centroids[c])
				if dist < bestDist {
					bestDist = dist
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; empty clusters keep their previous centroid.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := labels[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return labels
}

func squaredDist(v []float32, centroid []float64) float64 {
	var sum float64
	for d, x := range v {
		diff := float64(x) - centroid[d]
		sum += diff * diff
	}
	return sum
}
