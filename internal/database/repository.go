package database

import (
	"context"
)

// PatientWriter provides write access to patient records
type PatientWriter interface {
	// PutRecord stores the record under its patient ID, replacing any existing record
	PutRecord(ctx context.Context, table string, record PatientRecord) error
}

// PatientReader provides read-only access to patient records
type PatientReader interface {
	// QueryByIndex returns at most limit records whose key field equals value.
	// An empty result is not an error.
	QueryByIndex(ctx context.Context, table, index, key, value string, limit int) ([]PatientRecord, error)
}

// PatientStore is the record store used by the registration and identification handlers.
type PatientStore interface {
	PatientReader
	PatientWriter
}

// TableCreator is implemented by stores that can provision their table.
type TableCreator interface {
	// CreateTable creates the table and its face ID index if they do not exist yet
	CreateTable(ctx context.Context, table, index string) error
}

// FaceReader provides read-only access to face embeddings of the local recognizer
type FaceReader interface {
	// GetFace retrieves a face by ID, returns nil if not found
	GetFace(ctx context.Context, faceID string) (*StoredFace, error)
	// ListFaces returns every face indexed in a collection
	ListFaces(ctx context.Context, collectionID string) ([]StoredFace, error)
	// Count returns the number of faces indexed in a collection
	Count(ctx context.Context, collectionID string) (int, error)
}

// FaceWriter provides write access to face embeddings
type FaceWriter interface {
	FaceReader

	// SaveFace stores a single face
	SaveFace(ctx context.Context, face StoredFace) error
}
