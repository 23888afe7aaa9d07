package mariadb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kozaktomas/patient-face-id/internal/database"
)

const createPatientRecords = `
	CREATE TABLE IF NOT EXISTS patient_records (
		namespace   VARCHAR(255) NOT NULL,
		patient_id  VARCHAR(255) NOT NULL,
		face_id     VARCHAR(255) NOT NULL,
		created_at  BIGINT NOT NULL,
		updated_at  BIGINT NOT NULL,
		attributes  JSON NOT NULL,
		PRIMARY KEY (namespace, patient_id),
		INDEX idx_patient_records_face_id (namespace, face_id)
	) DEFAULT CHARSET = utf8mb4
`

// PatientRepository stores patient records in the patient_records table.
// The table argument of the store interface is used as a namespace column.
type PatientRepository struct {
	pool *Pool
}

// NewPatientRepository creates a new MariaDB patient repository.
func NewPatientRepository(pool *Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

// CreateTable creates the patient_records table if needed.
func (r *PatientRepository) CreateTable(ctx context.Context, table, index string) error {
	if _, err := r.pool.db.ExecContext(ctx, createPatientRecords); err != nil {
		return fmt.Errorf("create patient_records: %w", err)
	}
	return nil
}

// PutRecord inserts or replaces the record for a patient ID.
func (r *PatientRepository) PutRecord(ctx context.Context, table string, record database.PatientRecord) error {
	attrs, err := database.EncodeAttributesJSON(record.Attributes)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}

	query := `
		INSERT INTO patient_records (namespace, patient_id, face_id, created_at, updated_at, attributes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			face_id = VALUES(face_id),
			created_at = VALUES(created_at),
			updated_at = VALUES(updated_at),
			attributes = VALUES(attributes)
	`
	_, err = r.pool.db.ExecContext(ctx, query,
		table, record.PatientID, record.FaceID, record.CreatedAt, record.UpdatedAt, string(attrs))
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// QueryByIndex returns records whose key equals value. Keys other than patient_id and
// face_id are looked up in the attributes document.
func (r *PatientRepository) QueryByIndex(
	ctx context.Context, table, index, key, value string, limit int,
) ([]database.PatientRecord, error) {
	if limit <= 0 {
		limit = database.DefaultQueryLimit
	}

	var where string
	args := []any{table}
	switch key {
	case database.FieldPatientID:
		where = "patient_id = ?"
	case database.FieldFaceID:
		where = "face_id = ?"
	default:
		where = "JSON_UNQUOTE(JSON_EXTRACT(attributes, ?)) = ?"
		args = append(args, "$."+strconv.Quote(key))
	}
	args = append(args, value, limit)

	query := `
		SELECT patient_id, face_id, created_at, updated_at, attributes
		FROM patient_records
		WHERE namespace = ? AND ` + where + `
		ORDER BY patient_id
		LIMIT ?
	`
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
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

var (
	_ database.PatientStore = (*PatientRepository)(nil)
	_ database.TableCreator = (*PatientRepository)(nil)
)
