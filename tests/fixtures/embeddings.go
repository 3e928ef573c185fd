package fixtures

import "math"

// GenerateTestVector creates a deterministic vector of the given dimension.
// The seed shifts the whole vector so distinct seeds give distinct but
// predictable directions.
//
// Example:
//
//	vec := fixtures.GenerateTestVector(1536, 0.1) // [0.1, 0.101, 0.102, ...]
func GenerateTestVector(dimension int, seed float32) []float32 {
	vec := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		vec[i] = seed + float32(i)*0.001
	}
	return vec
}

// ZeroVector creates an all-zero vector. Encoder fallbacks store these, so
// grouping tests need them.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}

// UnitVector creates a basis vector with 1.0 at index and 0.0 elsewhere.
// Two distinct basis vectors are exactly orthogonal, which makes cluster
// boundaries unambiguous in tests.
func UnitVector(dimension, index int) []float32 {
	vec := make([]float32, dimension)
	if index >= 0 && index < dimension {
		vec[index] = 1.0
	}
	return vec
}

// NormalizedVector creates a unit-length vector from the seed, suitable
// for cosine similarity assertions.
func NormalizedVector(dimension int, seed float32) []float32 {
	vec := GenerateTestVector(dimension, seed)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	magnitude := float32(math.Sqrt(sum))
	if magnitude > 0 {
		for i := range vec {
			vec[i] /= magnitude
		}
	}
	return vec
}

// AngledVector creates a 2D unit vector at the given angle in degrees.
// Cosine similarity between two of these equals the cosine of their angular
// separation, so thresholds can be asserted exactly.
func AngledVector(degrees float64) []float32 {
	rad := degrees * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

// SimilarVector mixes the base vector with a small deterministic
// perturbation. retention 1.0 returns the base direction unchanged; lower
// values drift further away. The exact cosine similarity is not guaranteed.
func SimilarVector(base []float32, retention float32) []float32 {
	result := make([]float32, len(base))
	perturbation := 1.0 - retention
	for i := range base {
		noise := perturbation * float32(i%10) * 0.01
		result[i] = base[i]*retention + noise
	}
	return result
}
