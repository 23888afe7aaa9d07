package database

import "math"

// CosineDistance computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - math.Max(-1, math.Min(1, similarity))
}

// SimilarityPercent converts a cosine distance to a 0-100 similarity score.
// Opposite or orthogonal vectors score 0.
func SimilarityPercent(distance float64) float64 {
	s := (1 - distance) * 100
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
