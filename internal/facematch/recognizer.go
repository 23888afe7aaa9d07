// Package facematch is a self-hosted face recognizer. Faces are detected and embedded by
// the embedding server, persisted through a face store and searched by cosine similarity,
// either in an in-memory HNSW index per collection or in pgvector.
package facematch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/patient-face-id/internal/database"
	"github.com/kozaktomas/patient-face-id/internal/embedding"
	"github.com/kozaktomas/patient-face-id/internal/patient"
)

// ErrNoFace is returned when a search image contains no detectable face.
var ErrNoFace = errors.New("no face detected in the search image")

// qualityFilterNone disables the detection score and face size checks.
const qualityFilterNone = "NONE"

// FaceDetector detects faces and computes their embeddings.
type FaceDetector interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*embedding.FaceResponse, error)
}

// SimilarFinder searches stored faces by embedding distance.
type SimilarFinder interface {
	FindSimilar(ctx context.Context, collectionID string, embedding []float32, limit int) ([]database.StoredFace, []float64, error)
}

// Options configures a Recognizer.
type Options struct {
	MinDetScore  float64 // minimum detection score to index a face
	MinFaceWidth int     // minimum face width in pixels to index a face
	Dim          int     // expected embedding dimension, 0 accepts any
	IndexPath    string  // HNSW persistence prefix; the collection ID is appended
}

// Recognizer implements patient.Recognizer on top of the embedding server.
type Recognizer struct {
	detector FaceDetector
	faces    database.FaceWriter
	finder   SimilarFinder // nil selects the in-memory HNSW index
	opts     Options

	mu      sync.Mutex
	indexes map[string]*database.HNSWIndex

	now func() time.Time
}

// NewRecognizer creates a recognizer that searches an in-memory HNSW index per collection.
func NewRecognizer(detector FaceDetector, faces database.FaceWriter, opts Options) *Recognizer {
	return &Recognizer{
		detector: detector,
		faces:    faces,
		opts:     opts,
		indexes:  make(map[string]*database.HNSWIndex),
		now:      time.Now,
	}
}

// NewDatabaseRecognizer creates a recognizer that delegates similarity search to finder.
func NewDatabaseRecognizer(detector FaceDetector, faces database.FaceWriter, finder SimilarFinder, opts Options) *Recognizer {
	r := NewRecognizer(detector, faces, opts)
	r.finder = finder
	return r
}

// IndexFaces stores the largest faces passing the quality filter, at most in.MaxFaces.
func (r *Recognizer) IndexFaces(ctx context.Context, in patient.IndexFacesInput) ([]patient.IndexedFace, error) {
	resp, err := r.detector.ComputeFaceEmbeddings(ctx, in.Image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	candidates := r.acceptable(resp.Faces, in.QualityFilter)
	sortLargestFirst(candidates)
	if in.MaxFaces > 0 && len(candidates) > in.MaxFaces {
		candidates = candidates[:in.MaxFaces]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var idx *database.HNSWIndex
	if r.finder == nil {
		if idx, err = r.index(ctx, in.CollectionID); err != nil {
			return nil, err
		}
	}

	width, height := imageSize(in.Image)
	indexed := make([]patient.IndexedFace, 0, len(candidates))
	for _, f := range candidates {
		if r.opts.Dim > 0 && len(f.Embedding) != r.opts.Dim {
			return nil, fmt.Errorf("%w: expected %d, got %d", database.ErrDimensionMismatch, r.opts.Dim, len(f.Embedding))
		}

		face := database.StoredFace{
			FaceID:          uuid.NewString(),
			CollectionID:    in.CollectionID,
			ExternalImageID: in.ExternalImageID,
			Embedding:       f.Embedding,
			BBox:            f.BBox,
			DetScore:        f.DetScore,
			Model:           resp.Model,
			Dim:             len(f.Embedding),
			CreatedAt:       r.now(),
		}
		if err := r.faces.SaveFace(ctx, face); err != nil {
			return nil, fmt.Errorf("save face: %w", err)
		}
		if idx != nil {
			if err := idx.Add(&face); err != nil {
				return nil, fmt.Errorf("index face: %w", err)
			}
		}

		indexed = append(indexed, patient.IndexedFace{
			FaceID:      face.FaceID,
			Confidence:  f.DetScore * 100,
			BoundingBox: ConvertPixelBBoxToRelative(f.BBox, width, height),
		})
	}
	return indexed, nil
}

// SearchFacesByImage matches the largest face in the image against the collection.
func (r *Recognizer) SearchFacesByImage(ctx context.Context, in patient.SearchInput) ([]patient.FaceMatch, error) {
	resp, err := r.detector.ComputeFaceEmbeddings(ctx, in.Image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(resp.Faces) == 0 {
		return nil, ErrNoFace
	}
	faces := append([]embedding.Face(nil), resp.Faces...)
	sortLargestFirst(faces)
	query := faces[0].Embedding

	maxFaces := max(in.MaxFaces, 1)
	k := maxFaces * database.HNSWSearchMultiplier

	var ids []string
	var distances []float64
	if r.finder != nil {
		found, dists, err := r.finder.FindSimilar(ctx, in.CollectionID, query, k)
		if err != nil {
			return nil, fmt.Errorf("search faces: %w", err)
		}
		for _, f := range found {
			ids = append(ids, f.FaceID)
		}
		distances = dists
	} else {
		idx, err := r.index(ctx, in.CollectionID)
		if err != nil {
			return nil, err
		}
		if ids, distances, err = idx.Search(query, k); err != nil {
			return nil, fmt.Errorf("search faces: %w", err)
		}
	}

	matches := make([]patient.FaceMatch, 0, len(ids))
	for i, id := range ids {
		sim := database.SimilarityPercent(distances[i])
		if sim < in.Threshold {
			continue
		}
		matches = append(matches, patient.FaceMatch{FaceID: id, Similarity: sim})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > maxFaces {
		matches = matches[:maxFaces]
	}
	return matches, nil
}

// CreateCollection is a no-op: collections exist implicitly through their faces.
func (r *Recognizer) CreateCollection(ctx context.Context, collectionID string) error {
	return nil
}

// Save persists every loaded HNSW index when an index path is configured.
func (r *Recognizer) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for collection, idx := range r.indexes {
		if err := idx.Save(); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", collection, err))
		}
	}
	return errors.Join(errs...)
}

// index returns the HNSW index of a collection, loading it from disk or rebuilding it from
// the face store on first use.
func (r *Recognizer) index(ctx context.Context, collectionID string) (*database.HNSWIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.indexes[collectionID]; ok {
		return idx, nil
	}

	count, err := r.faces.Count(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("count faces: %w", err)
	}

	idx := database.NewHNSWIndex()
	path := r.indexPath(collectionID)
	if path != "" {
		err := idx.Load(path)
		switch {
		case err == nil && idx.Count() == count:
			r.indexes[collectionID] = idx
			return idx, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			fmt.Fprintf(os.Stderr, "Warning: ignoring HNSW index %s: %v\n", path, err)
		}
	}

	faces, err := r.faces.ListFaces(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	if err := idx.BuildFromFaces(faces); err != nil {
		return nil, fmt.Errorf("build HNSW index: %w", err)
	}
	idx.SetPath(path)
	r.indexes[collectionID] = idx
	return idx, nil
}

func (r *Recognizer) indexPath(collectionID string) string {
	if r.opts.IndexPath == "" {
		return ""
	}
	return r.opts.IndexPath + "." + collectionID
}

// acceptable drops faces failing the quality filter.
func (r *Recognizer) acceptable(faces []embedding.Face, qualityFilter string) []embedding.Face {
	out := make([]embedding.Face, 0, len(faces))
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		if qualityFilter != qualityFilterNone {
			if f.DetScore < r.opts.MinDetScore || f.Width() < float64(r.opts.MinFaceWidth) {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

func sortLargestFirst(faces []embedding.Face) {
	sort.SliceStable(faces, func(i, j int) bool { return bboxArea(faces[i].BBox) > bboxArea(faces[j].BBox) })
}

var _ patient.Recognizer = (*Recognizer)(nil)
