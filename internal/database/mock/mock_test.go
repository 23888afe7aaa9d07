package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/patient-face-id/internal/database"
)

func TestMockPatientStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMockPatientStore()

	first := database.PatientRecord{PatientID: "P-1", FaceID: "face-1", Attributes: map[string]string{"name": "A"}}
	second := database.PatientRecord{PatientID: "P-1", FaceID: "face-2", Attributes: map[string]string{"name": "B"}}

	if err := store.PutRecord(ctx, "t", first); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}
	if err := store.PutRecord(ctx, "t", second); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}

	got := store.Get("t", "P-1")
	if got == nil || got.FaceID != "face-2" || got.Attributes["name"] != "B" {
		t.Fatalf("expected second record to win, got %+v", got)
	}

	old, err := store.QueryByIndex(ctx, "t", "face_id-index", "face_id", "face-1", 1)
	if err != nil {
		t.Fatalf("QueryByIndex: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("expected old face ID to resolve to nothing, got %v", old)
	}
}

func TestMockPatientStore_QueryLimitAndTables(t *testing.T) {
	ctx := context.Background()
	store := NewMockPatientStore()

	for _, id := range []string{"P-3", "P-1", "P-2"} {
		rec := database.PatientRecord{PatientID: id, FaceID: "shared"}
		if err := store.PutRecord(ctx, "t", rec); err != nil {
			t.Fatalf("PutRecord: %v", err)
		}
	}
	if err := store.PutRecord(ctx, "other", database.PatientRecord{PatientID: "P-9", FaceID: "shared"}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}

	got, err := store.QueryByIndex(ctx, "t", "idx", "face_id", "shared", 2)
	if err != nil {
		t.Fatalf("QueryByIndex: %v", err)
	}
	if len(got) != 2 || got[0].PatientID != "P-1" || got[1].PatientID != "P-2" {
		t.Errorf("expected [P-1 P-2], got %+v", got)
	}
}

func TestMockPatientStore_ErrorInjection(t *testing.T) {
	ctx := context.Background()
	store := NewMockPatientStore()
	store.PutError = errors.New("throttled")
	store.QueryError = errors.New("unavailable")

	if err := store.PutRecord(ctx, "t", database.PatientRecord{PatientID: "P-1"}); err == nil {
		t.Error("expected put error")
	}
	if _, err := store.QueryByIndex(ctx, "t", "idx", "face_id", "x", 1); err == nil {
		t.Error("expected query error")
	}
	if store.PutCalls != 1 || store.QueryCalls != 1 {
		t.Errorf("expected 1 call each, got put=%d query=%d", store.PutCalls, store.QueryCalls)
	}
}

func TestMockFaceStore_ListByCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMockFaceStore()

	_ = store.SaveFace(ctx, database.StoredFace{FaceID: "b", CollectionID: "c1"})
	_ = store.SaveFace(ctx, database.StoredFace{FaceID: "a", CollectionID: "c1"})
	_ = store.SaveFace(ctx, database.StoredFace{FaceID: "z", CollectionID: "c2"})

	faces, err := store.ListFaces(ctx, "c1")
	if err != nil {
		t.Fatalf("ListFaces: %v", err)
	}
	if len(faces) != 2 || faces[0].FaceID != "a" {
		t.Errorf("expected [a b], got %+v", faces)
	}

	n, _ := store.Count(ctx, "c2")
	if n != 1 {
		t.Errorf("expected 1 face in c2, got %d", n)
	}

	missing, err := store.GetFace(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing face, got %v, %v", missing, err)
	}
}
