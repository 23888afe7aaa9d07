package patient

import "context"

// BoundingBox locates a face as ratios of the image width and height.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IndexFacesInput asks a recognizer to add faces from an image to a collection.
type IndexFacesInput struct {
	CollectionID    string
	Image           []byte
	ExternalImageID string // patient ID, stored alongside the face by the recognizer
	MaxFaces        int
	QualityFilter   string // NONE, AUTO, LOW, MEDIUM, HIGH
}

// IndexedFace is a face accepted into a collection.
type IndexedFace struct {
	FaceID      string
	Confidence  float64
	BoundingBox BoundingBox
}

// SearchInput asks a recognizer for indexed faces similar to the largest face in an image.
type SearchInput struct {
	CollectionID string
	Image        []byte
	Threshold    float64 // minimum similarity, 0-100
	MaxFaces     int
}

// FaceMatch is an indexed face whose similarity reached the threshold.
type FaceMatch struct {
	FaceID     string
	Similarity float64 // 0-100
}

// Recognizer indexes and searches faces. An empty result is not an error.
type Recognizer interface {
	IndexFaces(ctx context.Context, in IndexFacesInput) ([]IndexedFace, error)
	SearchFacesByImage(ctx context.Context, in SearchInput) ([]FaceMatch, error)
}
