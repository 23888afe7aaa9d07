// Package mock provides in-memory implementations of database interfaces.
// They back the "memory" store provider and are used by tests across the repo.
package mock

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/kozaktomas/patient-face-id/internal/database"
)

// MockPatientStore is an in-memory implementation of database.PatientStore
type MockPatientStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]database.PatientRecord // table -> patient ID -> record

	// Error injection
	PutError   error
	QueryError error

	// Call tracking
	PutCalls   int
	QueryCalls int
}

// NewMockPatientStore creates a new empty patient store
func NewMockPatientStore() *MockPatientStore {
	return &MockPatientStore{
		tables: make(map[string]map[string]database.PatientRecord),
	}
}

// PutRecord stores a record, replacing any existing record for the same patient ID
func (m *MockPatientStore) PutRecord(ctx context.Context, table string, record database.PatientRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.PutError != nil {
		return m.PutError
	}
	if record.PatientID == "" {
		return fmt.Errorf("put record: %s is required", database.FieldPatientID)
	}
	t, ok := m.tables[table]
	if !ok {
		t = make(map[string]database.PatientRecord)
		m.tables[table] = t
	}
	record.Attributes = maps.Clone(record.Attributes)
	t[record.PatientID] = record
	return nil
}

// QueryByIndex returns records whose key field equals value, ordered by patient ID.
// The index name is not interpreted.
func (m *MockPatientStore) QueryByIndex(ctx context.Context, table, index, key, value string, limit int) ([]database.PatientRecord, error) {
	m.mu.Lock()
	m.QueryCalls++
	m.mu.Unlock()
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	if limit <= 0 {
		limit = database.DefaultQueryLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.PatientRecord
	for _, rec := range m.tables[table] {
		var field string
		switch key {
		case database.FieldPatientID:
			field = rec.PatientID
		case database.FieldFaceID:
			field = rec.FaceID
		default:
			field = rec.Attributes[key]
		}
		if field == value {
			rec.Attributes = maps.Clone(rec.Attributes)
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns the record stored for a patient ID, or nil
func (m *MockPatientStore) Get(table, patientID string) *database.PatientRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.tables[table][patientID]
	if !ok {
		return nil
	}
	return &rec
}

// CreateTable is a no-op; tables are created on first write.
func (m *MockPatientStore) CreateTable(ctx context.Context, table, index string) error {
	return nil
}

// MockFaceStore is an in-memory implementation of database.FaceWriter
type MockFaceStore struct {
	mu    sync.RWMutex
	faces map[string]database.StoredFace

	// Error injection
	SaveError error
	ListError error
}

// NewMockFaceStore creates a new empty face store
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{
		faces: make(map[string]database.StoredFace),
	}
}

// SaveFace stores a single face
func (m *MockFaceStore) SaveFace(ctx context.Context, face database.StoredFace) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces[face.FaceID] = face
	return nil
}

// GetFace retrieves a face by ID
func (m *MockFaceStore) GetFace(ctx context.Context, faceID string) (*database.StoredFace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	face, ok := m.faces[faceID]
	if !ok {
		return nil, nil
	}
	return &face, nil
}

// ListFaces returns every face in a collection, ordered by face ID
func (m *MockFaceStore) ListFaces(ctx context.Context, collectionID string) ([]database.StoredFace, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredFace
	for _, f := range m.faces {
		if f.CollectionID == collectionID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FaceID < out[j].FaceID })
	return out, nil
}

// Count returns the number of faces in a collection
func (m *MockFaceStore) Count(ctx context.Context, collectionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, f := range m.faces {
		if f.CollectionID == collectionID {
			n++
		}
	}
	return n, nil
}

var (
	_ database.PatientStore = (*MockPatientStore)(nil)
	_ database.TableCreator = (*MockPatientStore)(nil)
	_ database.FaceWriter   = (*MockFaceStore)(nil)
)
