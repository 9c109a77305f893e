// Package config loads questionbank settings from defaults, an optional YAML
// file and the environment, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/questionbank/pkg/types"
)

// Backend is the resolved storage backend. It is a closed set.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendDatabase Backend = "database"
)

// ProductionEnvironment forces the database backend
const ProductionEnvironment = "production"

// Environment variables read by LoadEnv
const (
	EnvStorageType  = "QBANK_STORAGE_TYPE"
	EnvDataPath     = "QBANK_DATA_PATH"
	EnvCacheEnabled = "QBANK_CACHE_ENABLED"
	EnvCacheTTL     = "QBANK_CACHE_TTL"
	EnvCacheSize    = "QBANK_CACHE_SIZE"
	EnvDatabaseDSN  = "QBANK_DATABASE_DSN"
	EnvWatchFile    = "QBANK_WATCH_FILE"
	EnvConnectRetry = "QBANK_CONNECT_RETRIES"
	EnvLogLevel     = "QBANK_LOG_LEVEL"
	EnvUseDatabase  = "USE_DATABASE"
	EnvAppEnv       = "APP_ENV"
)

// Defaults
const (
	DefaultDataPath  = "./data"
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 256
	DefaultLogLevel  = "info"

	DefaultConnectRetries = 3
)

// Config is the complete application configuration
type Config struct {
	Storage  Storage `yaml:"storage"`
	LogLevel string  `yaml:"log_level"`
}

// Storage configures backend selection and the backends themselves
type Storage struct {
	// Type is the explicitly requested backend; empty means no preference
	Type         string        `yaml:"type"`
	DataPath     string        `yaml:"data_path"`
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheSize    int           `yaml:"cache_size"`
	DatabaseDSN  string        `yaml:"database_dsn"`
	WatchFile    bool          `yaml:"watch_file"`

	// ConnectRetries is the number of attempts made to open the database
	ConnectRetries int `yaml:"connect_retries"`

	// Environment and UseDatabase are deployment signals normally set from
	// APP_ENV and USE_DATABASE
	Environment string `yaml:"environment"`
	UseDatabase bool   `yaml:"use_database"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataPath:     DefaultDataPath,
			CacheEnabled: true,
			CacheTTL:     DefaultCacheTTL,
			CacheSize:    DefaultCacheSize,

			ConnectRetries: DefaultConnectRetries,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.LoadEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays environment variables read through getenv onto c.
// Unparseable values are ignored.
func (c *Config) LoadEnv(getenv func(string) string) {
	if val := getenv(EnvStorageType); val != "" {
		c.Storage.Type = val
	}
	if val := getenv(EnvDataPath); val != "" {
		c.Storage.DataPath = val
	}
	if val := getenv(EnvCacheEnabled); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Storage.CacheEnabled = b
		}
	}
	if val := getenv(EnvCacheTTL); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Storage.CacheTTL = d
		}
	}
	if val := getenv(EnvCacheSize); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Storage.CacheSize = n
		}
	}
	if val := getenv(EnvDatabaseDSN); val != "" {
		c.Storage.DatabaseDSN = val
	}
	if val := getenv(EnvWatchFile); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Storage.WatchFile = b
		}
	}
	if val := getenv(EnvConnectRetry); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Storage.ConnectRetries = n
		}
	}
	if val := getenv(EnvUseDatabase); val != "" {
		c.Storage.UseDatabase = val == "true"
	}
	if val := getenv(EnvAppEnv); val != "" {
		c.Storage.Environment = val
	}
	if val := getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}
}

// Validate checks the values that cannot be resolved later
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.DataPath) == "" {
		return fmt.Errorf("storage data path is required")
	}
	if c.Storage.CacheTTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	if c.Storage.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.Storage.ConnectRetries < 0 {
		return fmt.Errorf("connect retries cannot be negative")
	}
	return nil
}

// Resolve picks the backend once, by priority: a production environment
// forces the database; then the use-database flag; then an explicit type;
// then the presence of a database connection string; otherwise the file
// backend. An explicit type outside the closed set fails with
// UNSUPPORTED_BACKEND.
func (s Storage) Resolve() (Backend, error) {
	if s.Environment == ProductionEnvironment {
		return BackendDatabase, nil
	}
	if s.UseDatabase {
		return BackendDatabase, nil
	}
	if t := strings.ToLower(strings.TrimSpace(s.Type)); t != "" {
		switch Backend(t) {
		case BackendFile, BackendDatabase:
			return Backend(t), nil
		}
		return "", types.NewError(types.KindUnsupportedBackend, "config.resolve",
			"unsupported storage type %q", s.Type)
	}
	if s.DatabaseDSN != "" {
		return BackendDatabase, nil
	}
	return BackendFile, nil
}
