package grouping

import "math"

// normalize returns a unit-length copy of the vector. Zero vectors come
// back as zero copies; they match nothing and cluster as noise.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// cosineSim computes the cosine similarity of two unit vectors (their dot
// product).
func cosineSim(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// cosineDist is 1 minus the cosine similarity of two unit vectors.
func cosineDist(a, b []float32) float64 {
	return 1 - cosineSim(a, b)
}

// meanPairwiseSim returns the average cosine similarity over all pairs.
// A single vector is maximally self-similar.
func meanPairwiseSim(vectors [][]float32) float64 {
	n := len(vectors)
	if n < 2 {
		return 1
	}
	var total float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += cosineSim(vectors[i], vectors[j])
			pairs++
		}
	}
	return total / float64(pairs)
}
