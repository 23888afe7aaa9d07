package database

import (
	"time"
)

// Record field names shared by every patient store backend.
const (
	FieldPatientID = "patient_id"
	FieldFaceID    = "face_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// IsReservedField reports whether name is one of the typed record fields.
// Attributes with these names are never persisted.
func IsReservedField(name string) bool {
	switch name {
	case FieldPatientID, FieldFaceID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// PatientRecord represents one enrolled identity.
type PatientRecord struct {
	PatientID  string
	FaceID     string
	CreatedAt  int64 // milliseconds since epoch
	UpdatedAt  int64 // milliseconds since epoch
	Attributes map[string]string
}

// Fields flattens the record into plain values keyed by field name.
// Typed fields take precedence over attributes with the same name.
// created_at and updated_at are JSON numbers (ms since epoch), not DynamoDB's string-encoded N values.
func (r *PatientRecord) Fields() map[string]any {
	out := make(map[string]any, len(r.Attributes)+4)
	for k, v := range r.Attributes {
		out[k] = v
	}
	out[FieldPatientID] = r.PatientID
	out[FieldFaceID] = r.FaceID
	out[FieldCreatedAt] = r.CreatedAt
	out[FieldUpdatedAt] = r.UpdatedAt
	return out
}

// StoredFace represents a face embedding indexed by the local recognizer.
type StoredFace struct {
	FaceID          string
	CollectionID    string
	ExternalImageID string
	Embedding       []float32
	BBox            []float64 // [x1, y1, x2, y2] in raw pixel coordinates
	DetScore        float64
	Model           string
	Dim             int
	CreatedAt       time.Time
}

// Width returns the bounding box width in pixels, or 0 if the box is malformed.
func (f *StoredFace) Width() float64 {
	if len(f.BBox) != 4 {
		return 0
	}
	return f.BBox[2] - f.BBox[0]
}
