package manager

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/questionbank/internal/config"
	"github.com/dshills/questionbank/internal/storage"
	"github.com/dshills/questionbank/pkg/types"
)

// DefaultMigrationConcurrency bounds concurrent tag creation during migration
const DefaultMigrationConcurrency = 4

// Opener constructs a backend from the storage configuration
type Opener func(ctx context.Context, cfg config.Storage, logger *zap.Logger) (storage.Storage, error)

// Manager owns the active backend. It adds no semantics to the storage
// operations beyond choosing which backend serves them.
type Manager struct {
	cfg    config.Storage
	logger *zap.Logger

	openFile     Opener
	openDatabase Opener

	migrationConcurrency int
	migrating            tryLock

	mu      sync.RWMutex
	backend storage.Storage
	active  config.Backend
}

var _ storage.Storage = (*Manager)(nil)

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithFileOpener replaces the file backend constructor
func WithFileOpener(o Opener) Option {
	return func(m *Manager) { m.openFile = o }
}

// WithDatabaseOpener replaces the database backend constructor
func WithDatabaseOpener(o Opener) Option {
	return func(m *Manager) { m.openDatabase = o }
}

// WithMigrationConcurrency bounds concurrent tag creation during migration
func WithMigrationConcurrency(n int) Option {
	return func(m *Manager) { m.migrationConcurrency = n }
}

// New creates an uninitialized Manager
func New(cfg config.Storage, opts ...Option) *Manager {
	m := &Manager{
		cfg:                  cfg,
		logger:               zap.NewNop(),
		openFile:             OpenFileStorage,
		openDatabase:         OpenDatabaseStorage,
		migrationConcurrency: DefaultMigrationConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.migrationConcurrency <= 0 {
		m.migrationConcurrency = DefaultMigrationConcurrency
	}
	return m
}

func cacheConfig(cfg config.Storage) storage.CacheConfig {
	return storage.CacheConfig{
		Enabled: cfg.CacheEnabled,
		TTL:     cfg.CacheTTL,
		Size:    cfg.CacheSize,
	}
}

// OpenFileStorage opens the file backend at cfg.DataPath, starting the
// change watcher when cfg.WatchFile is set
func OpenFileStorage(ctx context.Context, cfg config.Storage, logger *zap.Logger) (storage.Storage, error) {
	fs, err := storage.NewFileStorage(cfg.DataPath,
		storage.WithFileCache(storage.NewCache(cacheConfig(cfg))),
		storage.WithFileLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if cfg.WatchFile {
		// The watcher lives until the backend is closed
		if err := fs.Watch(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("file watcher not started", zap.Error(err))
		}
	}
	return fs, nil
}

// OpenDatabaseStorage opens the database backend at cfg.DatabaseDSN,
// retrying the connection up to cfg.ConnectRetries times
func OpenDatabaseStorage(ctx context.Context, cfg config.Storage, logger *zap.Logger) (storage.Storage, error) {
	retry := storage.DefaultRetryConfig()
	retry.MaxAttempts = cfg.ConnectRetries

	return storage.NewSQLiteStorage(ctx, cfg.DatabaseDSN,
		storage.WithSQLiteCache(storage.NewCache(cacheConfig(cfg))),
		storage.WithConnectRetry(retry),
	)
}

// Initialize resolves the backend type and opens it. A database backend
// that fails to open is replaced by the file backend; if that fails too the
// error is MIGRATION_FAILED. A backend that opens but reports unhealthy is
// kept and only logged.
func (m *Manager) Initialize(ctx context.Context) error {
	const op = "manager.initialize"

	backendType, err := m.cfg.Resolve()
	if err != nil {
		return err
	}

	var store storage.Storage
	switch backendType {
	case config.BackendDatabase:
		store, err = m.openDatabase(ctx, m.cfg, m.logger)
	default:
		store, err = m.openFile(ctx, m.cfg, m.logger)
	}

	if err != nil {
		m.logger.Error("storage initialization failed",
			zap.String("backend", string(backendType)),
			zap.Error(err))
		if backendType != config.BackendDatabase {
			return err
		}

		m.logger.Info("falling back to file storage")
		store, err = m.openFile(ctx, m.cfg, m.logger)
		if err != nil {
			return types.WrapError(types.KindMigrationFailed, op, err, "storage initialization failed completely")
		}
		backendType = config.BackendFile
	}

	health := store.HealthCheck(ctx)
	if !health.Healthy() {
		m.logger.Warn("storage health check warning",
			zap.String("backend", string(backendType)),
			zap.String("error", health.Error))
	}

	m.mu.Lock()
	previous := m.backend
	m.backend = store
	m.active = backendType
	m.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	m.logger.Info("storage initialized", zap.String("backend", string(backendType)))
	return nil
}

// ActiveBackend returns the backend in use, or "" before Initialize
func (m *Manager) ActiveBackend() config.Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Storage returns the active backend. It fails with BACKEND_UNAVAILABLE
// before Initialize.
func (m *Manager) Storage() (storage.Storage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.backend == nil {
		return nil, types.NewError(types.KindBackendUnavailable, "manager",
			"storage is not initialized; call Initialize first")
	}
	return m.backend, nil
}

// Close closes the active backend and returns the Manager to the
// uninitialized state
func (m *Manager) Close() error {
	m.mu.Lock()
	store := m.backend
	m.backend = nil
	m.active = ""
	m.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Close()
}

// SyncData checks backend health, clears its cache and returns fresh
// statistics. An unhealthy backend fails with BACKEND_UNAVAILABLE.
func (m *Manager) SyncData(ctx context.Context) (*types.Statistics, error) {
	store, err := m.Storage()
	if err != nil {
		return nil, err
	}

	health := store.HealthCheck(ctx)
	if !health.Healthy() {
		return nil, types.NewError(types.KindBackendUnavailable, "manager.sync",
			"storage is unhealthy, cannot sync: %s", health.Error)
	}

	store.ClearCache()
	stats, err := store.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Info("data sync complete",
		zap.Int("categories", stats.TotalCategories),
		zap.Int("questions", stats.TotalQuestions),
		zap.Int("tags", stats.TotalTags))
	return stats, nil
}
