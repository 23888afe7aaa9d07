package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testFaces() []StoredFace {
	return []StoredFace{
		{FaceID: "face-a", CollectionID: "c1", ExternalImageID: "P-A", Embedding: []float32{1, 0, 0}},
		{FaceID: "face-b", CollectionID: "c1", ExternalImageID: "P-B", Embedding: []float32{0, 1, 0}},
		{FaceID: "face-c", CollectionID: "c1", ExternalImageID: "P-C", Embedding: []float32{0, 0, 1}},
	}
}

func TestHNSWIndex_SearchNearest(t *testing.T) {
	idx := NewHNSWIndex()
	if err := idx.BuildFromFaces(testFaces()); err != nil {
		t.Fatalf("BuildFromFaces: %v", err)
	}

	ids, distances, err := idx.Search([]float32{0.1, 0.9, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 1 || ids[0] != "face-b" {
		t.Fatalf("expected face-b, got %v", ids)
	}
	if distances[0] > 0.1 {
		t.Errorf("expected small distance, got %v", distances[0])
	}
}

func TestHNSWIndex_EmptySearch(t *testing.T) {
	idx := NewHNSWIndex()

	ids, _, err := idx.Search([]float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("expected no error on empty index, got %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no results, got %v", ids)
	}
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := NewHNSWIndex()
	if err := idx.BuildFromFaces(testFaces()); err != nil {
		t.Fatalf("BuildFromFaces: %v", err)
	}

	err := idx.Add(&StoredFace{FaceID: "face-d", Embedding: []float32{1, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on add, got %v", err)
	}

	_, _, err = idx.Search([]float32{1, 0}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}
}

func TestHNSWIndex_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.hnsw")

	idx := NewHNSWIndex()
	idx.SetPath(path)
	if err := idx.BuildFromFaces(testFaces()); err != nil {
		t.Fatalf("BuildFromFaces: %v", err)
	}
	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewHNSWIndex()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Count() != 3 {
		t.Errorf("expected 3 faces after load, got %d", loaded.Count())
	}
	if f := loaded.GetFace("face-c"); f == nil || f.ExternalImageID != "P-C" {
		t.Errorf("expected face-c metadata after load, got %+v", f)
	}

	ids, _, err := loaded.Search([]float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatalf("Search after load: %v", err)
	}
	if len(ids) != 1 || ids[0] != "face-c" {
		t.Errorf("expected face-c, got %v", ids)
	}
}

func TestHNSWIndex_LoadMissing(t *testing.T) {
	idx := NewHNSWIndex()
	err := idx.Load(filepath.Join(t.TempDir(), "missing.hnsw"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
