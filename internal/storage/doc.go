// Package storage provides the persistence backends for question bank content.
//
// Two backends implement the Storage interface:
//   - FileStorage keeps the whole content tree in a single JSON document
//     (questionBankData.json) under a data directory
//   - SQLiteStorage keeps content in normalized relations
//
// # Database Schema
//
// Tables:
//   - categories: category records
//   - questions: question records, each owned by one category
//   - tags: tag names, unique
//   - question_tags: question to tag links
//   - schema_version: applied migrations
//
// A category that still owns questions cannot be deleted. Deleting a
// question removes its tag links; the tags themselves are kept.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(ctx, "questionbank.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	category, err := store.CreateCategory(ctx, types.NewCategory{
//	    Name: "JavaScript Fundamentals",
//	})
//
//	question, err := store.CreateQuestion(ctx, types.NewQuestion{
//	    CategoryID: category.ID,
//	    Title:      "Closures",
//	    Content:    "Explain closures.",
//	    Tags:       []string{"functions", "scope"},
//	})
//
// # Caching
//
// Every backend owns a Cache of reads. Any successful mutation clears the
// whole cache, so a read after a write never sees stale data. Reads return
// copies; callers may modify results freely.
//
// # Errors
//
// Every error returned by a backend is a *types.Error carrying a Kind:
//
//	_, err := store.DeleteCategory(ctx, id)
//	if types.IsKind(err, types.KindHasDependents) {
//	    // delete the questions first
//	}
//
// # Build Tags
//
// The SQLite driver is chosen at build time:
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
//
// CGO Build (cgo_sqlite tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "cgo_sqlite"
package storage
