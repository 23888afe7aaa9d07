package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/patient-face-id/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// FaceRepository provides PostgreSQL-backed storage for local recognizer face embeddings.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

const faceColumns = `face_id, collection_id, external_image_id, embedding, bbox, det_score, model, dim, created_at`

// SaveFace stores a single face.
func (r *FaceRepository) SaveFace(ctx context.Context, face database.StoredFace) error {
	query := `
		INSERT INTO faces (face_id, collection_id, external_image_id, embedding, bbox, det_score, model, dim)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		face.FaceID,
		face.CollectionID,
		face.ExternalImageID,
		pgvector.NewVector(face.Embedding),
		pq.Array(face.BBox),
		face.DetScore,
		face.Model,
		face.Dim,
	)
	if err != nil {
		return fmt.Errorf("save face: %w", err)
	}
	return nil
}

// GetFace retrieves a face by ID, returns nil if not found.
func (r *FaceRepository) GetFace(ctx context.Context, faceID string) (*database.StoredFace, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+faceColumns+` FROM faces WHERE face_id = $1`, faceID)
	face, err := scanFace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get face: %w", err)
	}
	return &face, nil
}

// ListFaces returns every face indexed in a collection.
func (r *FaceRepository) ListFaces(ctx context.Context, collectionID string) ([]database.StoredFace, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+faceColumns+` FROM faces WHERE collection_id = $1 ORDER BY created_at, face_id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var faces []database.StoredFace
	for rows.Next() {
		face, err := scanFace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// Count returns the number of faces indexed in a collection.
func (r *FaceRepository) Count(ctx context.Context, collectionID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces WHERE collection_id = $1", collectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// FindSimilar returns the nearest faces in a collection by pgvector cosine distance.
// The local recognizer falls back to this when its in-memory index is disabled.
func (r *FaceRepository) FindSimilar(
	ctx context.Context, collectionID string, embedding []float32, limit int,
) ([]database.StoredFace, []float64, error) {
	query := `
		SELECT ` + faceColumns + `, embedding <=> $2 AS distance
		FROM faces
		WHERE collection_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, collectionID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("find similar faces: %w", err)
	}
	defer rows.Close()

	var faces []database.StoredFace
	var distances []float64
	for rows.Next() {
		var dist float64
		face, err := scanFace(rows, &dist)
		if err != nil {
			return nil, nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, face)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, distances, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFace(row rowScanner, extra ...any) (database.StoredFace, error) {
	var face database.StoredFace
	var vec pgvector.Vector
	var bbox pq.Float64Array

	dest := []any{
		&face.FaceID,
		&face.CollectionID,
		&face.ExternalImageID,
		&vec,
		&bbox,
		&face.DetScore,
		&face.Model,
		&face.Dim,
		&face.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return face, err //nolint:wrapcheck // callers wrap with context
	}

	face.Embedding = vec.Slice()
	face.BBox = bbox
	return face, nil
}

var _ database.FaceWriter = (*FaceRepository)(nil)
