package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/patient-face-id/internal/config"
	"github.com/kozaktomas/patient-face-id/internal/database"
	"github.com/kozaktomas/patient-face-id/internal/database/dynamodb"
	"github.com/kozaktomas/patient-face-id/internal/database/mariadb"
	"github.com/kozaktomas/patient-face-id/internal/database/mock"
	"github.com/kozaktomas/patient-face-id/internal/database/postgres"
	"github.com/kozaktomas/patient-face-id/internal/embedding"
	"github.com/kozaktomas/patient-face-id/internal/facematch"
	"github.com/kozaktomas/patient-face-id/internal/patient"
	"github.com/kozaktomas/patient-face-id/internal/rekognition"
)

// collectionCreator provisions a recognizer collection.
type collectionCreator interface {
	CreateCollection(ctx context.Context, collectionID string) error
}

// recognizerBackend is what the commands need from a recognizer.
type recognizerBackend interface {
	patient.Recognizer
	collectionCreator
}

// storeBackend is what the commands need from a record store.
type storeBackend interface {
	database.PatientStore
	database.TableCreator
}

// backends holds the collaborators built from configuration.
type backends struct {
	recognizer recognizerBackend
	store      storeBackend

	local   *facematch.Recognizer // set for the local recognizer, its index is saved on close
	pgPool  *postgres.Pool
	closers []func() error
}

// loadConfig loads and validates configuration from the environment.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openBackends constructs the record store and the recognizer selected by cfg.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	if err := b.openStore(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openRecognizer(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backends) openStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Provider {
	case config.StoreDynamoDB:
		store, err := dynamodb.NewFromConfig(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("creating DynamoDB store: %w", err)
		}
		b.store = store
		fmt.Printf("Using DynamoDB record store (table %s)\n", cfg.Store.TableName)

	case config.StorePostgres:
		pool, err := b.postgres(ctx, cfg)
		if err != nil {
			return err
		}
		b.store = postgres.NewPatientRepository(pool)
		fmt.Printf("Using PostgreSQL record store (namespace %s)\n", cfg.Store.TableName)

	case config.StoreMariaDB:
		pool, err := mariadb.NewPool(ctx, &cfg.MariaDB)
		if err != nil {
			return fmt.Errorf("failed to connect to MariaDB: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.store = mariadb.NewPatientRepository(pool)
		fmt.Printf("Using MariaDB record store (namespace %s)\n", cfg.Store.TableName)

	case config.StoreMemory:
		b.store = mock.NewMockPatientStore()
		fmt.Println("Warning: using in-memory record store, records are lost on exit")

	default:
		return fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
	return nil
}

func (b *backends) openRecognizer(ctx context.Context, cfg *config.Config) error {
	switch cfg.Recognition.Provider {
	case config.RecognitionRekognition:
		r, err := rekognition.NewFromConfig(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("creating Rekognition client: %w", err)
		}
		b.recognizer = r
		fmt.Printf("Using Amazon Rekognition (collection %s)\n", cfg.Recognition.CollectionID)

	case config.RecognitionLocal:
		client := embedding.NewClient(cfg.Embedding.URL)
		opts := facematch.Options{
			MinDetScore:  cfg.Recognition.MinDetScore,
			MinFaceWidth: cfg.Recognition.MinFaceWidth,
			Dim:          cfg.Embedding.Dim,
			IndexPath:    cfg.Database.HNSWIndexPath,
		}

		var faces database.FaceWriter
		var repo *postgres.FaceRepository
		if cfg.Database.URL != "" {
			pool, err := b.postgres(ctx, cfg)
			if err != nil {
				return err
			}
			repo = postgres.NewFaceRepository(pool)
			faces = repo
		} else {
			faces = mock.NewMockFaceStore()
			fmt.Println("Warning: DATABASE_URL not set, face embeddings are kept in memory only")
		}

		if cfg.Database.HNSWEnabled {
			b.local = facematch.NewRecognizer(client, faces, opts)
			fmt.Printf("Using local recognizer at %s with in-memory HNSW search\n", cfg.Embedding.URL)
		} else {
			if repo == nil {
				return errors.New("HNSW_ENABLED=false requires DATABASE_URL")
			}
			b.local = facematch.NewDatabaseRecognizer(client, faces, repo, opts)
			fmt.Printf("Using local recognizer at %s with pgvector search\n", cfg.Embedding.URL)
		}
		b.recognizer = b.local

	default:
		return fmt.Errorf("unknown recognition provider %q", cfg.Recognition.Provider)
	}
	return nil
}

// postgres opens the shared PostgreSQL pool once; migrations run on open.
func (b *backends) postgres(ctx context.Context, cfg *config.Config) (*postgres.Pool, error) {
	if b.pgPool != nil {
		return b.pgPool, nil
	}
	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	b.pgPool = pool
	b.closers = append(b.closers, pool.Close)
	return pool, nil
}

// Close saves the local face index and releases connections.
func (b *backends) Close() error {
	var errs []error
	if b.local != nil {
		if err := b.local.Save(); err != nil {
			errs = append(errs, fmt.Errorf("saving face index: %w", err))
		}
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// newService wires the collaborators into the patient handlers.
func newService(cfg *config.Config, b *backends) *patient.Service {
	return patient.NewService(b.recognizer, b.store, patient.Options{
		CollectionID:   cfg.Recognition.CollectionID,
		TableName:      cfg.Store.TableName,
		FaceIndexName:  cfg.Store.FaceIndexName,
		MatchThreshold: cfg.Recognition.MatchThreshold,
		QualityFilter:  cfg.Recognition.QualityFilter,
		MaxImageSize:   cfg.Image.MaxSize,
	})
}
