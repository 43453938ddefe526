package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Image store backends.
const (
	ImageStoreFile   = "file"
	ImageStoreRedis  = "redis"
	ImageStoreSQLite = "sqlite"
)

// Document store backends.
const (
	DocStoreMemory    = "memory"
	DocStorePathstore = "pathstore"
	DocStorePostgres  = "postgres"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Worker pool
	WorkerCount         int `yaml:"worker_count"`
	MaxQueueSize        int `yaml:"max_queue_size"`
	MaxConcurrentImages int `yaml:"max_concurrent_images"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL       time.Duration `yaml:"job_ttl"`
	IndexRetries int           `yaml:"index_retries"`

	// Image store
	ImageStore    string `yaml:"image_store"`
	ImageDir      string `yaml:"image_dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	SQLitePath    string `yaml:"sqlite_path"`

	// Document store
	DocStore        string `yaml:"doc_store"`
	DatabaseURL     string `yaml:"database_url"`
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"pathstore_api_key"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                "8090",
		WorkerCount:         4,
		MaxQueueSize:        100,
		MaxConcurrentImages: 4,
		MaxUploadBytes:      52428800, // 50MB
		JobTTL:              1 * time.Hour,
		IndexRetries:        3,
		ImageStore:          ImageStoreFile,
		ImageDir:            "img",
		SQLitePath:          "images.db",
		DocStore:            DocStoreMemory,
		PathstoreURL:        "http://localhost:8080",
	}
}

// Load reads defaults, then the YAML file named by CONFIG_FILE (if any),
// then environment overrides.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("DOCREAD_API_KEY", c.APIKey)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxConcurrentImages = envInt("MAX_CONCURRENT_IMAGES", c.MaxConcurrentImages)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.IndexRetries = envInt("INDEX_RETRIES", c.IndexRetries)

	c.ImageStore = envOr("IMAGE_STORE", c.ImageStore)
	c.ImageDir = envOr("IMAGE_DIR", c.ImageDir)
	c.RedisAddr = envOr("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envOr("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = envInt("REDIS_DB", c.RedisDB)
	c.SQLitePath = envOr("SQLITE_PATH", c.SQLitePath)

	c.DocStore = envOr("DOC_STORE", c.DocStore)
	c.DatabaseURL = envOr("DATABASE_URL", c.DatabaseURL)
	c.PathstoreURL = envOr("PATHSTORE_URL", c.PathstoreURL)
	c.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", c.PathstoreAPIKey)
}

func (c *Config) clamp() {
	d := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentImages <= 0 {
		c.MaxConcurrentImages = d.MaxConcurrentImages
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.IndexRetries < 0 {
		c.IndexRetries = 0
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("DOCREAD_API_KEY is required"))
	}

	switch c.ImageStore {
	case ImageStoreFile:
		if c.ImageDir == "" {
			errs = append(errs, errors.New("IMAGE_DIR is required for the file image store"))
		}
	case ImageStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis image store"))
		}
	case ImageStoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite image store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore))
	}

	switch c.DocStore {
	case DocStoreMemory:
	case DocStorePathstore:
		if c.PathstoreAPIKey == "" {
			errs = append(errs, errors.New("PATHSTORE_API_KEY is required for the pathstore document store"))
		}
	case DocStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres document store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DOC_STORE %q", c.DocStore))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
