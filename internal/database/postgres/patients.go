package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/patient-face-id/internal/database"
)

// PatientRepository stores patient records in the patient_records table.
// The table argument of the store interface is used as a namespace column.
type PatientRepository struct {
	pool *Pool
}

// NewPatientRepository creates a new PostgreSQL patient repository.
func NewPatientRepository(pool *Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

// PutRecord inserts or replaces the record for a patient ID.
func (r *PatientRepository) PutRecord(ctx context.Context, table string, record database.PatientRecord) error {
	attrs, err := database.EncodeAttributesJSON(record.Attributes)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}

	query := `
		INSERT INTO patient_records (namespace, patient_id, face_id, created_at, updated_at, attributes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (namespace, patient_id) DO UPDATE SET
			face_id = EXCLUDED.face_id,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			attributes = EXCLUDED.attributes
	`
	_, err = r.pool.Exec(ctx, query, table, record.PatientID, record.FaceID, record.CreatedAt, record.UpdatedAt, attrs)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// QueryByIndex returns records whose key equals value. patient_id and face_id are
// matched against their columns, any other key against the attributes document.
// The index name is left to the query planner.
func (r *PatientRepository) QueryByIndex(
	ctx context.Context, table, index, key, value string, limit int,
) ([]database.PatientRecord, error) {
	if limit <= 0 {
		limit = database.DefaultQueryLimit
	}

	var where string
	args := []any{table, value, limit}
	switch key {
	case database.FieldPatientID:
		where = "patient_id = $2"
	case database.FieldFaceID:
		where = "face_id = $2"
	default:
		where = "attributes->>$4 = $2"
		args = append(args, key)
	}

	query := `
		SELECT patient_id, face_id, created_at, updated_at, attributes
		FROM patient_records
		WHERE namespace = $1 AND ` + where + `
		ORDER BY patient_id
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records by %s: %w", key, err)
	}
	defer rows.Close()

	var records []database.PatientRecord
	for rows.Next() {
		var rec database.PatientRecord
		var attrs []byte
		if err := rows.Scan(&rec.PatientID, &rec.FaceID, &rec.CreatedAt, &rec.UpdatedAt, &attrs); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Attributes, err = database.DecodeAttributesJSON(attrs); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.PatientID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// CreateTable is satisfied by migrations; the namespace needs no provisioning.
func (r *PatientRepository) CreateTable(ctx context.Context, table, index string) error {
	return r.pool.Migrate(ctx)
}

var (
	_ database.PatientStore = (*PatientRepository)(nil)
	_ database.TableCreator = (*PatientRepository)(nil)
)
