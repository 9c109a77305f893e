package manager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/questionbank/internal/config"
	"github.com/dshills/questionbank/internal/storage"
	"github.com/dshills/questionbank/pkg/types"
)

func seedFileData(t *testing.T, dataPath string) {
	fs, err := storage.NewFileStorage(dataPath)
	require.NoError(t, err)
	defer fs.Close()

	doc := &types.Document{Categories: []types.Category{
		{ID: "js", Name: "JavaScript", Description: "Language core", Questions: []types.Question{
			{ID: "closures", Title: "Closures", Content: "Explain closures.", Difficulty: types.DifficultyMedium,
				Tags: []string{"functions", "scope"}},
			{ID: "promises", Title: "Promises", Content: "Explain promises.", Difficulty: types.DifficultyHard,
				Tags: []string{"async"}},
		}},
		{ID: "go", Name: "Go", Questions: []types.Question{
			{ID: "goroutines", Title: "Goroutines", Content: "Explain goroutines.", Difficulty: types.DifficultyEasy,
				Tags: []string{"async", "concurrency"}},
		}},
		{ID: "empty", Name: "Empty"},
	}}
	require.NoError(t, fs.ImportData(context.Background(), doc))
}

func databaseConfig(t *testing.T) config.Storage {
	cfg := testConfig(t)
	cfg.Type = string(config.BackendDatabase)
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "questionbank.db")
	return cfg
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	m := setupManager(t, testConfig(t))

	_, err := m.MigrateFromFileToDatabase(context.Background())
	assert.ErrorIs(t, err, types.ErrUnsupportedBackend)
}

func TestMigrate_EmptySource(t *testing.T) {
	m := setupManager(t, databaseConfig(t))

	_, err := m.MigrateFromFileToDatabase(context.Background())
	assert.ErrorIs(t, err, types.ErrMigrationFailed)
}

func TestMigrate_CopiesEverything(t *testing.T) {
	cfg := databaseConfig(t)
	seedFileData(t, cfg.DataPath)
	m := setupManager(t, cfg)
	ctx := context.Background()

	report, err := m.MigrateFromFileToDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationCounts{Created: 3}, report.Categories)
	assert.Equal(t, MigrationCounts{Created: 3}, report.Questions)
	assert.Equal(t, MigrationCounts{Created: 4}, report.Tags)

	q, err := m.GetQuestionByID(ctx, "goroutines")
	require.NoError(t, err)
	assert.Equal(t, "go", q.CategoryID)
	assert.Equal(t, types.DifficultyEasy, q.Difficulty)
	assert.Equal(t, []string{"async", "concurrency"}, q.Tags)

	c, err := m.GetCategoryByID(ctx, "js")
	require.NoError(t, err)
	assert.Equal(t, "Language core", c.Description)
	assert.Equal(t, 2, c.QuestionCount)
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := databaseConfig(t)
	seedFileData(t, cfg.DataPath)
	m := setupManager(t, cfg)
	ctx := context.Background()

	_, err := m.MigrateFromFileToDatabase(ctx)
	require.NoError(t, err)
	first, err := m.GetStatistics(ctx)
	require.NoError(t, err)

	report, err := m.MigrateFromFileToDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationCounts{Skipped: 3}, report.Categories)
	assert.Equal(t, MigrationCounts{Skipped: 3}, report.Questions)
	assert.Equal(t, MigrationCounts{Skipped: 4}, report.Tags)

	second, err := m.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TotalCategories, second.TotalCategories)
	assert.Equal(t, first.TotalQuestions, second.TotalQuestions)
	assert.Equal(t, first.TotalTags, second.TotalTags)
	assert.Equal(t, first.DifficultyDistribution, second.DifficultyDistribution)
}

func TestMigrate_ResumesPartialRun(t *testing.T) {
	cfg := databaseConfig(t)
	seedFileData(t, cfg.DataPath)
	m := setupManager(t, cfg)
	ctx := context.Background()

	// A previous run stopped after the first category and one question
	_, err := m.CreateCategory(ctx, types.NewCategory{ID: "js", Name: "JavaScript"})
	require.NoError(t, err)
	_, err = m.CreateQuestion(ctx, types.NewQuestion{
		ID: "closures", CategoryID: "js", Title: "Closures", Content: "Explain closures.",
	})
	require.NoError(t, err)

	report, err := m.MigrateFromFileToDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationCounts{Created: 2, Skipped: 1}, report.Categories)
	assert.Equal(t, MigrationCounts{Created: 2, Skipped: 1}, report.Questions)

	stats, err := m.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCategories)
	assert.Equal(t, 3, stats.TotalQuestions)
}

func TestMigrate_RejectsConcurrentRun(t *testing.T) {
	cfg := databaseConfig(t)
	seedFileData(t, cfg.DataPath)
	m := setupManager(t, cfg)

	require.True(t, m.migrating.TryAcquire())
	_, err := m.MigrateFromFileToDatabase(context.Background())
	assert.ErrorIs(t, err, types.ErrMigrationFailed)

	m.migrating.Release()
	report, err := m.MigrateFromFileToDatabase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Categories.Created)
}

func TestTryLock(t *testing.T) {
	var l tryLock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}
