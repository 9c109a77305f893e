package manager

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/questionbank/internal/config"
	"github.com/dshills/questionbank/internal/storage"
	"github.com/dshills/questionbank/pkg/types"
)

// MigrationCounts tallies the outcome of one record kind
type MigrationCounts struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (c *MigrationCounts) record(err error) {
	switch {
	case err == nil:
		c.Created++
	case types.IsKind(err, types.KindDuplicateID):
		c.Skipped++
	default:
		c.Failed++
	}
}

// MigrationReport summarizes a file to database migration. Skipped counts
// records that already existed in the database.
type MigrationReport struct {
	Categories MigrationCounts `json:"categories"`
	Questions  MigrationCounts `json:"questions"`
	Tags       MigrationCounts `json:"tags"`
}

// MigrateFromFileToDatabase copies the file backend's content into the
// active database backend. It is best effort: a record that fails is logged
// and skipped, and records that already exist are left alone, so running it
// twice yields the same final content as running it once. It fails only
// when the active backend is not the database, the file data is missing or
// another migration is running.
func (m *Manager) MigrateFromFileToDatabase(ctx context.Context) (*MigrationReport, error) {
	const op = "manager.migrate"

	target, err := m.Storage()
	if err != nil {
		return nil, err
	}
	if m.ActiveBackend() != config.BackendDatabase {
		return nil, types.NewError(types.KindUnsupportedBackend, op,
			"active backend is %s, migration requires the database backend", m.ActiveBackend())
	}
	if !m.migrating.TryAcquire() {
		return nil, types.NewError(types.KindMigrationFailed, op, "migration already in progress")
	}
	defer m.migrating.Release()

	source, err := m.openFile(ctx, m.cfg, m.logger)
	if err != nil {
		return nil, types.WrapError(types.KindMigrationFailed, op, err, "failed to open file storage")
	}
	defer func() { _ = source.Close() }()

	doc, err := source.ExportData(ctx)
	if err != nil {
		return nil, types.WrapError(types.KindMigrationFailed, op, err, "failed to read file data")
	}
	if doc.IsEmpty() {
		return nil, types.NewError(types.KindMigrationFailed, op, "no file data to migrate")
	}

	m.logger.Info("starting migration",
		zap.Int("categories", len(doc.Categories)),
		zap.Int("questions", doc.QuestionCount()))

	report := &MigrationReport{}
	m.migrateTags(ctx, target, doc.TagNames(), report)

	for _, c := range doc.Categories {
		_, err := target.CreateCategory(ctx, types.NewCategory{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
		})
		report.Categories.record(err)
		if err != nil && !types.IsKind(err, types.KindDuplicateID) {
			m.logger.Warn("failed to migrate category",
				zap.String("id", c.ID), zap.Error(err))
			report.Questions.Failed += len(c.Questions)
			continue
		}

		for _, q := range c.Questions {
			_, err := target.CreateQuestion(ctx, types.NewQuestion{
				ID:         q.ID,
				CategoryID: c.ID,
				Title:      q.Title,
				Content:    q.Content,
				Difficulty: q.Difficulty,
				Tags:       q.Tags,
			})
			report.Questions.record(err)
			if err != nil && !types.IsKind(err, types.KindDuplicateID) {
				m.logger.Warn("failed to migrate question",
					zap.String("id", q.ID), zap.Error(err))
			}
		}
	}

	m.logger.Info("migration complete",
		zap.Int("categories_created", report.Categories.Created),
		zap.Int("questions_created", report.Questions.Created),
		zap.Int("tags_created", report.Tags.Created),
		zap.Int("failed", report.Categories.Failed+report.Questions.Failed+report.Tags.Failed))
	return report, nil
}

// migrateTags creates every tag up front when the target stores tags on
// their own. Question creation creates missing tags anyway, so failures here
// are only logged.
func (m *Manager) migrateTags(ctx context.Context, target storage.Storage, names []string, report *MigrationReport) {
	creator, ok := target.(storage.TagCreator)
	if !ok {
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.migrationConcurrency)

	for _, name := range names {
		name := name
		g.Go(func() error {
			err := creator.CreateTag(gctx, name)
			if err != nil && !types.IsKind(err, types.KindDuplicateID) {
				m.logger.Warn("failed to create tag", zap.String("tag", name), zap.Error(err))
			}
			mu.Lock()
			report.Tags.record(err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}
