//go:build integration

package mariadb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/patient-face-id/internal/config"
	"github.com/kozaktomas/patient-face-id/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil || container == nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port())

	// The port opens before the server accepts logins.
	var pool *Pool
	for range 30 {
		if pool, err = NewPool(ctx, &config.MariaDBConfig{DSN: dsn, MaxOpenConns: 2}); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open pool: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestPatientRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewPatientRepository(pool)

	if err := repo.CreateTable(ctx, "patients", "face_id-index"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := repo.CreateTable(ctx, "patients", "face_id-index"); err != nil {
		t.Fatalf("CreateTable must be idempotent: %v", err)
	}

	rec := database.PatientRecord{
		PatientID:  "P-001",
		FaceID:     "face-1",
		CreatedAt:  1700000000000,
		UpdatedAt:  1700000000000,
		Attributes: map[string]string{"name": "Jana Nováková", "ward": "B"},
	}
	if err := repo.PutRecord(ctx, "patients", rec); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}

	got, err := repo.QueryByIndex(ctx, "patients", "face_id-index", "face_id", "face-1", 1)
	if err != nil {
		t.Fatalf("QueryByIndex: %v", err)
	}
	if len(got) != 1 || got[0].PatientID != "P-001" || got[0].Attributes["name"] != "Jana Nováková" {
		t.Fatalf("unexpected records: %+v", got)
	}

	rec.FaceID = "face-2"
	if err := repo.PutRecord(ctx, "patients", rec); err != nil {
		t.Fatalf("PutRecord overwrite: %v", err)
	}
	old, err := repo.QueryByIndex(ctx, "patients", "face_id-index", "face_id", "face-1", 1)
	if err != nil {
		t.Fatalf("QueryByIndex: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("expected overwritten face to resolve to nothing, got %+v", old)
	}

	byAttr, err := repo.QueryByIndex(ctx, "patients", "", "ward", "B", 10)
	if err != nil {
		t.Fatalf("QueryByIndex attribute: %v", err)
	}
	if len(byAttr) != 1 || byAttr[0].FaceID != "face-2" {
		t.Errorf("expected one record with face-2, got %+v", byAttr)
	}

	other, err := repo.QueryByIndex(ctx, "other", "face_id-index", "face_id", "face-2", 1)
	if err != nil {
		t.Fatalf("QueryByIndex other namespace: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no records in other namespace, got %+v", other)
	}
}
