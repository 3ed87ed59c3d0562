// Package vector provides the vector math used by Munin's semantic edge
// inference and embedding-based retrieval.
//
// All similarity comparisons in the codebase go through this package so that
// threshold checks are consistent everywhere.
//
// Main Functions:
//   - CosineSimilarity: standard similarity for float32 embeddings
//   - DotProduct: dot product (equals cosine for normalized vectors)
//   - Normalize: returns a unit-length copy of a vector
package vector

import "math"

// CosineSimilarity calculates cosine similarity between two float32 vectors.
// Returns a value in [-1, 1] where 1 = identical direction, 0 = orthogonal,
// -1 = opposite. Mismatched or empty vectors return 0.
//
// Uses float64 accumulation for precision even with float32 inputs.
//
// Example:
//
//	a := []float32{1.0, 2.0, 3.0}
//	b := []float32{4.0, 5.0, 6.0}
//	sim := vector.CosineSimilarity(a, b) // 0.9746...
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DotProduct calculates the dot product of two float32 vectors.
// Returns float64 for precision. Mismatched vectors return 0.
//
// For normalized vectors the dot product equals cosine similarity.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Normalize returns a unit-length copy of vec. The input is not modified.
// Zero vectors are returned unchanged (as a copy).
func Normalize(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	NormalizeInPlace(out)
	return out
}

// NormalizeInPlace normalizes v to unit length, modifying it directly.
// Zero vectors are left unchanged.
func NormalizeInPlace(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
