package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/questionbank/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	store, err := NewSQLiteStorage(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewSQLiteStorage(t *testing.T) {
	store := setupTestDB(t)

	assert.NotNil(t, store.db)

	version, err := SchemaVersion(context.Background(), store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestNewSQLiteStorage_EmptyDSN(t *testing.T) {
	_, err := NewSQLiteStorage(context.Background(), "  ")
	assert.ErrorIs(t, err, types.ErrBackendUnavailable)
}

func TestNewSQLiteStorage_Unreachable(t *testing.T) {
	_, err := NewSQLiteStorage(context.Background(), "/nonexistent/dir/questionbank.db")
	assert.ErrorIs(t, err, types.ErrBackendUnavailable)
}

func TestSQLite_Scenario_CreateAndList(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	category, err := store.CreateCategory(ctx, types.NewCategory{Name: "Diffusion"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(category.ID, "diffusion-"), category.ID)

	_, err = store.CreateQuestion(ctx, types.NewQuestion{
		CategoryID: category.ID,
		Title:      "Fick's law",
		Content:    "State Fick's first law.",
		Tags:       []string{"diffusion", "pde"},
	})
	require.NoError(t, err)

	questions, err := store.GetQuestionsByCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Fick's law", questions[0].Title)
	assert.Equal(t, category.Name, questions[0].CategoryName)
	assert.ElementsMatch(t, []string{"diffusion", "pde"}, questions[0].Tags)
	assert.Equal(t, types.DifficultyMedium, questions[0].Difficulty)
}

func TestSQLite_UniqueIDs(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		c, err := store.CreateCategory(ctx, types.NewCategory{Name: "Repeated"})
		require.NoError(t, err)
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestSQLite_DuplicateID(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedCategory(t, store, "js", "JavaScript")

	_, err := store.CreateCategory(ctx, types.NewCategory{ID: "js", Name: "Again"})
	assert.ErrorIs(t, err, types.ErrDuplicateID)

	_, err = store.CreateQuestion(ctx, types.NewQuestion{ID: "q1", CategoryID: "js", Title: "T", Content: "C"})
	require.NoError(t, err)
	_, err = store.CreateQuestion(ctx, types.NewQuestion{ID: "q1", CategoryID: "js", Title: "T", Content: "C"})
	assert.ErrorIs(t, err, types.ErrDuplicateID)
}

func TestSQLite_CreateQuestion_MissingCategory(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.CreateQuestion(context.Background(), types.NewQuestion{
		CategoryID: "missing", Title: "T", Content: "C",
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLite_CreateQuestion_Invalid(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedCategory(t, store, "js", "JavaScript")

	_, err := store.CreateQuestion(ctx, types.NewQuestion{
		CategoryID: "js", Title: "T", Content: "C", Difficulty: "extreme",
	})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = store.CreateQuestion(ctx, types.NewQuestion{CategoryID: "js"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field title is required")
	assert.Contains(t, err.Error(), "field content is required")
}

func TestSQLite_GetCategory(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, store)

	c, err := store.GetCategoryByID(ctx, "js")
	require.NoError(t, err)
	assert.Equal(t, "JavaScript", c.Name)
	assert.Equal(t, 2, c.QuestionCount)

	_, err = store.GetCategoryByID(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLite_GetAllCategories(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, store)
	seedCategory(t, store, "empty", "Empty")

	categories, err := store.GetAllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)

	byID := make(map[string]types.Category)
	for _, c := range categories {
		byID[c.ID] = c
	}
	assert.Equal(t, 2, byID["js"].QuestionCount)
	assert.Equal(t, 1, byID["go"].QuestionCount)
	assert.Equal(t, 0, byID["empty"].QuestionCount)
	assert.NotNil(t, byID["empty"].Questions)

	for _, q := range byID["js"].Questions {
		if q.ID == "closures" {
			assert.Equal(t, []string{"functions", "scope"}, q.Tags)
		}
	}
}

func TestSQLite_UpdateCategory(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	created := seedCategory(t, store, "js", "JavaScript")

	desc := "Language core"
	updated, err := store.UpdateCategory(ctx, "js", types.CategoryUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "JavaScript", updated.Name)
	assert.Equal(t, "Language core", updated.Description)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	_, err = store.UpdateCategory(ctx, "missing", types.CategoryUpdate{Description: &desc})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLite_DeleteCategory_HasDependents(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedCategory(t, store, "js", "JavaScript")
	_, err := store.CreateQuestion(ctx, types.NewQuestion{ID: "q1", CategoryID: "js", Title: "T", Content: "C"})
	require.NoError(t, err)

	_, err = store.DeleteCategory(ctx, "js")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrHasDependents)
	assert.Contains(t, err.Error(), "1 questions")

	_, err = store.DeleteQuestion(ctx, "q1")
	require.NoError(t, err)

	deleted, err := store.DeleteCategory(ctx, "js")
	require.NoError(t, err)
	assert.Equal(t, "js", deleted.ID)

	_, err = store.DeleteCategory(ctx, "js")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLite_DeleteQuestion_NotFound(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.DeleteQuestion(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLite_UpdateQuestion(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, store)

	title := "Closures and scope"
	difficulty := types.DifficultyHard
	tags := []string{"scope", "closures"}
	target := "go"
	updated, err := store.UpdateQuestion(ctx, "closures", types.QuestionUpdate{
		Title: &title, Difficulty: &difficulty, Tags: &tags, CategoryID: &target,
	})
	require.NoError(t, err)
	assert.Equal(t, "Closures and scope", updated.Title)
	assert.Equal(t, types.DifficultyHard, updated.Difficulty)
	assert.Equal(t, []string{"closures", "scope"}, updated.Tags)
	assert.Equal(t, "Go", updated.CategoryName)

	got, err := store.GetQuestionByID(ctx, "closures")
	require.NoError(t, err)
	assert.Equal(t, updated.Tags, got.Tags)
	assert.Equal(t, "go", got.CategoryID)

	missing := "nope"
	_, err = store.UpdateQuestion(ctx, "closures", types.QuestionUpdate{CategoryID: &missing})
	assert.ErrorIs(t, err, types.ErrNotFound)

	empty := ""
	_, err = store.UpdateQuestion(ctx, "closures", types.QuestionUpdate{Content: &empty})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSQLite_UpdateQuestionTags_Idempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, store)

	linkCount := func() int {
		var n int
		err := store.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM question_tags WHERE question_id = ?", "closures").Scan(&n)
		require.NoError(t, err)
		return n
	}

	tags := []string{"scope", "lexical", "scope"}
	require.NoError(t, store.UpdateQuestionTags(ctx, "closures", tags))
	first, err := store.GetQuestionByID(ctx, "closures")
	require.NoError(t, err)
	firstLinks := linkCount()

	require.NoError(t, store.UpdateQuestionTags(ctx, "closures", tags))
	second, err := store.GetQuestionByID(ctx, "closures")
	require.NoError(t, err)

	assert.Equal(t, []string{"lexical", "scope"}, first.Tags)
	assert.Equal(t, first.Tags, second.Tags)
	assert.Equal(t, 2, firstLinks)
	assert.Equal(t, firstLinks, linkCount())

	err = store.UpdateQuestionTags(ctx, "missing", tags)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLite_SearchQuestions(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, store)

	tests := []struct {
		name    string
		query   string
		filters types.SearchFilters
		want    []string
	}{
		{name: "empty query returns all", want: []string{"closures", "goroutines", "promises"}},
		{name: "title match", query: "CLOSURE", want: []string{"closures"}},
		{name: "content match", query: "keyword", want: []string{"goroutines"}},
		{name: "tag names are not searched", query: "CONCURR", want: []string{}},
		{name: "category filter", filters: types.SearchFilters{CategoryID: "js"}, want: []string{"closures", "promises"}},
		{name: "difficulty filter", filters: types.SearchFilters{Difficulty: types.DifficultyHard}, want: []string{"promises"}},
		{name: "any tag filter", filters: types.SearchFilters{Tags: []string{"scope", "concurrency"}}, want: []string{"closures", "goroutines"}},
		{name: "like wildcards are literal", query: "%", want: []string{}},
		{name: "no match", query: "rust", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.SearchQuestions(ctx, tt.query, tt.filters)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, questionIDs(results))
		})
	}
}

func TestSQLite_Scenario_SearchWithDifficulty(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedCategory(t, store, "physics", "Physics")
	for _, q := range []types.NewQuestion{
		{ID: "easy", Title: "Diffusion basics", Difficulty: types.DifficultyEasy},
		{ID: "medium", Title: "Diffusion equation", Difficulty: types.DifficultyMedium},
		{ID: "hard", Title: "Anomalous diffusion", Difficulty: types.DifficultyHard},
		{ID: "other", Title: "Kinematics", Difficulty: types.DifficultyEasy},
	} {
		q.CategoryID = "physics"
		q.Content = "..."
		_, err := store.CreateQuestion(ctx, q)
		require.NoError(t, err)
	}

	results, err := store.SearchQuestions(ctx, "diffusion", types.SearchFilters{Difficulty: types.DifficultyEasy})
	require.NoError(t, err)
	assert.Equal(t, []string{"easy"}, questionIDs(results))
}

func TestSearchQuestions_UnicodeCaseFolding(t *testing.T) {
	backends := map[string]Storage{
		"file":     setupTestFileStorage(t),
		"database": setupTestDB(t),
	}

	for name, store := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedCategory(t, store, "math", "Mathematik")
			_, err := store.CreateQuestion(ctx, types.NewQuestion{
				ID:         "laplace",
				CategoryID: "math",
				Title:      "Übung zum Δ-Operator",
				Content:    "ÉTUDE DU LAPLACIEN",
			})
			require.NoError(t, err)

			for _, query := range []string{"Übung", "übung", "ÜBUNG", "Δ-Operator", "δ-operator", "étude"} {
				results, err := store.SearchQuestions(ctx, query, types.SearchFilters{})
				require.NoError(t, err)
				assert.Equal(t, []string{"laplace"}, questionIDs(results), "query %q", query)
			}
		})
	}
}

func TestCreateQuestion_PaddedContentTooLong(t *testing.T) {
	backends := map[string]Storage{
		"file":     setupTestFileStorage(t),
		"database": setupTestDB(t),
	}

	for name, store := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedCategory(t, store, "go", "Go")

			_, err := store.CreateQuestion(ctx, types.NewQuestion{
				CategoryID: "go",
				Title:      "Padded",
				Content:    "   " + strings.Repeat("c", types.MaxContentLength) + "   ",
			})
			assert.ErrorIs(t, err, types.ErrValidation)

			q, err := store.CreateQuestion(ctx, types.NewQuestion{
				CategoryID: "go",
				Title:      "Fits",
				Content:    "c",
			})
			require.NoError(t, err)
			padded := "  " + strings.Repeat("c", types.MaxContentLength)
			_, err = store.UpdateQuestion(ctx, q.ID, types.QuestionUpdate{Content: &padded})
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestSQLite_Tags(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, store)

	require.NoError(t, store.CreateTag(ctx, "unused"))
	err := store.CreateTag(ctx, "unused")
	assert.ErrorIs(t, err, types.ErrDuplicateID)

	tags, err := store.GetAllTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"async", "concurrency", "functions", "scope", "unused"}, tags)

	byTag, err := store.GetQuestionsByTag(ctx, "async")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"promises", "goroutines"}, questionIDs(byTag))
	for _, q := range byTag {
		if q.ID == "goroutines" {
			assert.Equal(t, []string{"async", "concurrency"}, q.Tags, "all tags of a matched question are returned")
		}
	}

	// Tags outlive the questions that used them
	_, err = store.DeleteQuestion(ctx, "promises")
	require.NoError(t, err)
	tags, err = store.GetAllTags(ctx)
	require.NoError(t, err)
	assert.Contains(t, tags, "async")
}

func TestSQLite_Statistics(t *testing.T) {
	store := setupTestDB(t)
	seedSearchData(t, store)

	stats, err := store.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCategories)
	assert.Equal(t, 3, stats.TotalQuestions)
	assert.Equal(t, 4, stats.TotalTags)
	assert.Equal(t, types.DifficultyDistribution{Easy: 1, Medium: 1, Hard: 1}, stats.DifficultyDistribution)
}

func TestSQLite_ExportImportRoundTrip(t *testing.T) {
	src := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, src)

	doc, err := src.ExportData(ctx)
	require.NoError(t, err)

	dst := setupTestDB(t)
	seedCategory(t, dst, "stale", "Stale")
	require.NoError(t, dst.ImportData(ctx, doc))

	for _, store := range []Storage{src, dst} {
		categories, err := store.GetAllCategories(ctx)
		require.NoError(t, err)
		require.Len(t, categories, 2)
	}

	for _, id := range []string{"closures", "promises", "goroutines"} {
		want, err := src.GetQuestionByID(ctx, id)
		require.NoError(t, err)
		got, err := dst.GetQuestionByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.CategoryID, got.CategoryID)
		assert.Equal(t, want.Tags, got.Tags)
		assert.Equal(t, want.Difficulty, got.Difficulty)
	}

	_, err = dst.GetCategoryByID(ctx, "stale")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSQLite_ImportIntoFileBackend(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedSearchData(t, db)

	doc, err := db.ExportData(ctx)
	require.NoError(t, err)

	file := setupTestFileStorage(t)
	require.NoError(t, file.ImportData(ctx, doc))

	q, err := file.GetQuestionByID(ctx, "closures")
	require.NoError(t, err)
	assert.Equal(t, []string{"functions", "scope"}, q.Tags)
	assert.Equal(t, "js", q.CategoryID)
}

func TestSQLite_CacheReflectsWrites(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedCategory(t, store, "js", "JavaScript")

	categories, err := store.GetAllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Greater(t, store.cache.Len(), 0)

	seedCategory(t, store, "go", "Go")
	categories, err = store.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	// Mutating a result must not leak into the cache
	categories[0].Name = "mutated"
	again, err := store.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Name)
}

func TestSQLite_HealthCheck(t *testing.T) {
	store := setupTestDB(t)
	seedSearchData(t, store)

	health := store.HealthCheck(context.Background())
	assert.True(t, health.Healthy())
	assert.Equal(t, BackendDatabase, health.Storage)
	require.NotNil(t, health.Statistics)
	assert.Equal(t, 3, health.Statistics.TotalQuestions)

	require.NoError(t, store.Close())
	health = store.HealthCheck(context.Background())
	assert.False(t, health.Healthy())
	assert.NotEmpty(t, health.Error)
}

func TestMapError(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, "INSERT INTO tags (name) VALUES ('a')")
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, "INSERT INTO tags (name) VALUES ('a')")
	assert.ErrorIs(t, mapError("test", err), types.ErrDuplicateID)

	_, err = store.db.ExecContext(ctx,
		"INSERT INTO questions (id, category_id, title, content, created_at, updated_at) VALUES ('q', 'none', 't', 'c', 0, 0)")
	assert.ErrorIs(t, mapError("test", err), types.ErrNotFound)

	_, err = store.db.ExecContext(ctx, "SELECT * FROM no_such_table")
	assert.ErrorIs(t, mapError("test", err), types.ErrBackend)

	assert.NoError(t, mapError("test", nil))
}
