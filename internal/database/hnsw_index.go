package database

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

// ErrDimensionMismatch is returned when an embedding does not match the index dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// HNSWIndex wraps the HNSW graph for face embedding search within one collection.
type HNSWIndex struct {
	graph    *hnsw.Graph[string]
	idToFace map[string]*StoredFace // Maps HNSW node key (face ID) to face
	dim      int
	mu       sync.RWMutex
	path     string // Path to save/load index
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		idToFace: make(map[string]*StoredFace),
	}
}

func newFaceGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

// BuildFromFaces replaces the index content with the given faces.
func (h *HNSWIndex) BuildFromFaces(faces []StoredFace) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.dim = 0
	h.idToFace = make(map[string]*StoredFace, len(faces))

	for i := range faces {
		if err := h.addLocked(&faces[i]); err != nil {
			return fmt.Errorf("adding face %s: %w", faces[i].FaceID, err)
		}
	}
	return nil
}

// Add adds a single face to the index.
func (h *HNSWIndex) Add(face *StoredFace) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addLocked(face)
}

func (h *HNSWIndex) addLocked(face *StoredFace) error {
	if len(face.Embedding) == 0 {
		return nil
	}
	if _, ok := h.idToFace[face.FaceID]; ok {
		return nil
	}
	if h.dim != 0 && len(face.Embedding) != h.dim {
		return fmt.Errorf("%w: index has %d, face has %d", ErrDimensionMismatch, h.dim, len(face.Embedding))
	}

	if h.graph == nil {
		h.graph = newFaceGraph()
	}

	h.graph.Add(hnsw.MakeNode(face.FaceID, face.Embedding))
	h.idToFace[face.FaceID] = face
	h.dim = len(face.Embedding)
	return nil
}

// Search finds the k nearest neighbors to the query embedding.
// Returns face IDs and their cosine distances, nearest first.
func (h *HNSWIndex) Search(query []float32, k int) ([]string, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || h.graph.Len() == 0 {
		return nil, nil, nil
	}
	if len(query) != h.dim {
		return nil, nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, h.dim, len(query))
	}

	neighbors := h.graph.Search(query, k)

	ids := make([]string, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.Key)
		distances = append(distances, CosineDistance(query, n.Value))
	}

	return ids, distances, nil
}

// GetFace returns the face for a given ID.
func (h *HNSWIndex) GetFace(id string) *StoredFace {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idToFace[id]
}

// Count returns the number of indexed faces.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToFace)
}

// SetPath sets the path for saving the index.
func (h *HNSWIndex) SetPath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.path = path
}

// Save persists the graph and face metadata to disk. A no-op without a path.
func (h *HNSWIndex) Save() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.path == "" {
		return nil
	}

	if h.graph == nil {
		// Remove existing files if index is empty (best-effort cleanup).
		_ = os.Remove(h.path)
		_ = os.Remove(h.path + ".faces")
		return nil
	}

	f, err := os.Create(h.path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if err := h.graph.Export(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("exporting HNSW graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing HNSW index file: %w", err)
	}

	faces := make([]StoredFace, 0, len(h.idToFace))
	for _, face := range h.idToFace {
		faces = append(faces, *face)
	}
	if err := SaveFaceMetadata(h.path, faces); err != nil {
		return fmt.Errorf("failed to save face metadata: %w", err)
	}
	return nil
}

// Load restores the graph and face metadata from disk.
// Returns os.ErrNotExist (wrapped) when no index has been saved yet.
func (h *HNSWIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.path = path

	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("opening HNSW index: %w", err)
	}
	defer f.Close()

	g := newFaceGraph()
	if err := g.Import(f); err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	faces, err := LoadFaceMetadata(path)
	if err != nil {
		return fmt.Errorf("failed to load face metadata: %w", err)
	}

	h.graph = g
	h.dim = 0
	h.idToFace = make(map[string]*StoredFace, len(faces))
	for i := range faces {
		h.idToFace[faces[i].FaceID] = &faces[i]
		if h.dim == 0 {
			h.dim = len(faces[i].Embedding)
		}
	}
	return nil
}

// SaveFaceMetadata saves face metadata to a .faces file for fast loading at startup.
func SaveFaceMetadata(path string, faces []StoredFace) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(faces); err != nil {
		return fmt.Errorf("failed to encode faces: %w", err)
	}

	if err := os.WriteFile(path+".faces", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write faces file: %w", err)
	}
	return nil
}

// LoadFaceMetadata loads face metadata from a .faces file.
func LoadFaceMetadata(path string) ([]StoredFace, error) {
	data, err := os.ReadFile(path + ".faces") //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read faces file: %w", err)
	}

	var faces []StoredFace
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&faces); err != nil {
		return nil, fmt.Errorf("failed to decode faces: %w", err)
	}
	return faces, nil
}
