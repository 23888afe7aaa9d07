package database

// Face search tuning for 512-dim face embeddings.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier widens a search so enough candidates survive the similarity threshold.
	HNSWSearchMultiplier = 3
)

// Patient record store defaults.
const (
	// DefaultFaceIndexName is the secondary index resolving a face ID to its patient record.
	DefaultFaceIndexName = "face_id-index"

	// DefaultQueryLimit caps QueryByIndex when the caller passes a non-positive limit.
	DefaultQueryLimit = 100
)
