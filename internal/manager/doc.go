// Package manager selects, initializes and delegates to the active storage
// backend.
//
// The backend is resolved once from configuration. When the database
// backend cannot be opened the Manager falls back to the file backend; every
// other failure reaches the caller unchanged.
//
//	m := manager.New(cfg.Storage, manager.WithLogger(logger))
//	if err := m.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	categories, err := m.GetAllCategories(ctx)
//
// # Migration
//
// MigrateFromFileToDatabase copies every tag, category and question from the
// file backend into the active database backend. Records that already exist
// are skipped, so the migration can be re-run safely after an interruption.
package manager
