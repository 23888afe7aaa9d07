package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Recognition providers.
const (
	RecognitionRekognition = "rekognition"
	RecognitionLocal       = "local"
)

// Store providers.
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMariaDB  = "mariadb"
	StoreMemory   = "memory"
)

type Config struct {
	// loadErrs holds values Load could not parse; Validate reports them.
	loadErrs []error

	Recognition RecognitionConfig `yaml:"recognition"`
	Store       StoreConfig       `yaml:"store"`
	AWS         AWSConfig         `yaml:"-"`
	Database    DatabaseConfig    `yaml:"-"`
	MariaDB     MariaDBConfig     `yaml:"-"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Image       ImageConfig       `yaml:"image"`
}

type RecognitionConfig struct {
	Provider       string  `yaml:"provider"`
	CollectionID   string  `yaml:"-"`
	MatchThreshold float64 `yaml:"match_threshold"` // similarity percentage, 0-100
	QualityFilter  string  `yaml:"quality_filter"`  // NONE, AUTO, LOW, MEDIUM, HIGH
	MinDetScore    float64 `yaml:"min_det_score"`   // local recognizer only
	MinFaceWidth   int     `yaml:"min_face_width"`  // local recognizer only, pixels
}

type StoreConfig struct {
	Provider      string `yaml:"provider"`
	TableName     string `yaml:"-"`
	FaceIndexName string `yaml:"face_index_name"`
}

type AWSConfig struct {
	Region      string
	EndpointURL string // e.g. http://localhost:4566 for LocalStack
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist face HNSW index (optional, if empty index is rebuilt on startup)
	HNSWEnabled   bool   // Search faces in memory; when false the local recognizer queries pgvector
}

type MariaDBConfig struct {
	DSN          string // e.g. patients:patients@tcp(mariadb:3306)/patients
	MaxOpenConns int
	MaxIdleConns int
}

type EmbeddingConfig struct {
	URL string `yaml:"url"`
	Dim int    `yaml:"dim"`
}

type ImageConfig struct {
	MaxSize int `yaml:"max_size"` // max width or height before downscaling, 0 disables
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envNonNegativeInt is envInt that also accepts 0, for settings where 0 disables a feature.
func envNonNegativeInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloatStrict reads an environment variable as a float and reports invalid values
// instead of falling back to the default.
func envFloatStrict(key string, defaultVal float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s must be a number, got %q", key, s)
	}
	return f, nil
}

// envBool parses an environment variable with strconv.ParseBool.
// Returns the default value if the env var is unset or invalid.
func envBool(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultVal
}

// envString returns the env var value or defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Load builds the configuration from the embedded defaults overlaid with environment variables.
// It is meant to be called once at startup.
func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Recognition.Provider = strings.ToLower(envString("RECOGNITION_PROVIDER", cfg.Recognition.Provider))
	cfg.Recognition.CollectionID = os.Getenv("COLLECTION_ID")
	threshold, err := envFloatStrict("MATCH_THRESHOLD", cfg.Recognition.MatchThreshold)
	if err != nil {
		cfg.loadErrs = append(cfg.loadErrs, err)
	}
	cfg.Recognition.MatchThreshold = threshold
	cfg.Recognition.QualityFilter = strings.ToUpper(envString("QUALITY_FILTER", cfg.Recognition.QualityFilter))
	cfg.Recognition.MinDetScore = envFloat("MIN_DET_SCORE", cfg.Recognition.MinDetScore)
	cfg.Recognition.MinFaceWidth = envInt("MIN_FACE_WIDTH", cfg.Recognition.MinFaceWidth)

	cfg.Store.Provider = strings.ToLower(envString("STORE_PROVIDER", cfg.Store.Provider))
	cfg.Store.TableName = os.Getenv("TABLE_NAME")
	cfg.Store.FaceIndexName = envString("FACE_INDEX_NAME", cfg.Store.FaceIndexName)

	cfg.AWS = AWSConfig{
		Region:      os.Getenv("AWS_REGION"),
		EndpointURL: os.Getenv("AWS_ENDPOINT_URL"),
	}
	cfg.Database = DatabaseConfig{
		URL:           os.Getenv("DATABASE_URL"),
		MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
		HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		HNSWEnabled:   envBool("HNSW_ENABLED", true),
	}
	cfg.MariaDB = MariaDBConfig{
		DSN:          os.Getenv("MARIADB_DSN"),
		MaxOpenConns: envInt("MARIADB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: envInt("MARIADB_MAX_IDLE_CONNS", 5),
	}

	cfg.Embedding.URL = envString("EMBEDDING_URL", cfg.Embedding.URL)
	cfg.Embedding.Dim = envInt("EMBEDDING_DIM", cfg.Embedding.Dim)
	cfg.Image.MaxSize = envNonNegativeInt("MAX_IMAGE_SIZE", cfg.Image.MaxSize)

	return &cfg
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)

	if c.Recognition.CollectionID == "" {
		errs = append(errs, errors.New("COLLECTION_ID environment variable is required"))
	}
	if c.Store.TableName == "" {
		errs = append(errs, errors.New("TABLE_NAME environment variable is required"))
	}
	if c.Recognition.MatchThreshold < 0 || c.Recognition.MatchThreshold > 100 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be between 0 and 100, got %g", c.Recognition.MatchThreshold))
	}

	switch c.Recognition.Provider {
	case RecognitionRekognition:
	case RecognitionLocal:
		if c.Embedding.URL == "" {
			errs = append(errs, errors.New("EMBEDDING_URL is required for the local recognizer"))
		}
		if !c.Database.HNSWEnabled && c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when HNSW_ENABLED=false"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RECOGNITION_PROVIDER %q", c.Recognition.Provider))
	}

	switch c.Store.Provider {
	case StoreDynamoDB, StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL environment variable is required for the postgres store"))
		}
	case StoreMariaDB:
		if c.MariaDB.DSN == "" {
			errs = append(errs, errors.New("MARIADB_DSN environment variable is required for the mariadb store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_PROVIDER %q", c.Store.Provider))
	}

	return errors.Join(errs...)
}
