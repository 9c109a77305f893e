package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/questionbank/pkg/types"
)

// DefaultHealthTimeout bounds the health check query
const DefaultHealthTimeout = 5 * time.Second

// SQLiteStorage implements Storage over normalized relations: categories,
// questions, tags and the question_tags join. A question and its tag links
// are always written in one transaction.
type SQLiteStorage struct {
	db            *sql.DB
	dsn           string
	cache         *Cache
	ids           *IDGenerator
	healthTimeout time.Duration
	retry         RetryConfig
}

// SQLiteOption configures a SQLiteStorage
type SQLiteOption func(*SQLiteStorage)

// WithSQLiteCache sets the cache owned by the backend
func WithSQLiteCache(c *Cache) SQLiteOption {
	return func(s *SQLiteStorage) { s.cache = c }
}

// WithSQLiteIDGenerator sets the identifier generator
func WithSQLiteIDGenerator(g *IDGenerator) SQLiteOption {
	return func(s *SQLiteStorage) { s.ids = g }
}

// WithHealthTimeout bounds the health check query
func WithHealthTimeout(d time.Duration) SQLiteOption {
	return func(s *SQLiteStorage) { s.healthTimeout = d }
}

// WithConnectRetry retries the initial connection with exponential backoff
func WithConnectRetry(cfg RetryConfig) SQLiteOption {
	return func(s *SQLiteStorage) { s.retry = cfg }
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite has one writer, and :memory: databases are
	// per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens the database at dsn and applies pending
// migrations. Any failure is reported as BACKEND_UNAVAILABLE.
func NewSQLiteStorage(ctx context.Context, dsn string, opts ...SQLiteOption) (*SQLiteStorage, error) {
	const op = "sqlite.open"
	if strings.TrimSpace(dsn) == "" {
		return nil, types.NewError(types.KindBackendUnavailable, op, "database connection string is required")
	}

	s := &SQLiteStorage{dsn: dsn, healthTimeout: DefaultHealthTimeout, retry: RetryConfig{MaxAttempts: 1}}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewCache(DefaultCacheConfig())
	}
	if s.ids == nil {
		s.ids = NewIDGenerator()
	}

	db, err := retryWithBackoff(ctx, s.retry, func() (*sql.DB, error) {
		return openDatabase(ctx, dsn)
	})
	if err != nil {
		return nil, types.WrapError(types.KindBackendUnavailable, op, err, "failed to open database")
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, types.WrapError(types.KindBackendUnavailable, op, err, "failed to apply migrations")
	}

	s.db = db
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// ClearCache drops every cached read
func (s *SQLiteStorage) ClearCache() {
	s.cache.Clear()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, committing when fn returns nil
func (s *SQLiteStorage) withTx(ctx context.Context, op string, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(op, err)
	}
	return nil
}

// mapError re-wraps a driver error into the storage taxonomy
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return types.WrapError(types.KindDuplicateID, op, err, "record already exists")
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return types.WrapError(types.KindNotFound, op, err, "referenced record not found")
	}
	return types.WrapError(types.KindBackend, op, err, "database operation failed")
}

// Row scanning

// questionSelect returns one row per (question, tag) pair; questions without
// tags yield a single row with a NULL tag name
const questionSelect = `
	SELECT q.id, q.category_id, c.name, q.title, q.content, q.difficulty,
	       q.created_at, q.updated_at, t.name
	FROM questions q
	JOIN categories c ON c.id = q.category_id
	LEFT JOIN question_tags qt ON qt.question_id = q.id
	LEFT JOIN tags t ON t.id = qt.tag_id
`

// collectQuestions folds tag-join rows into questions, keeping first-seen
// question order
func collectQuestions(rows *sql.Rows) ([]types.Question, error) {
	defer func() { _ = rows.Close() }()

	questions := make([]types.Question, 0)
	index := make(map[string]int)
	for rows.Next() {
		var q types.Question
		var difficulty string
		var tag sql.NullString
		if err := rows.Scan(
			&q.ID, &q.CategoryID, &q.CategoryName, &q.Title, &q.Content, &difficulty,
			&q.CreatedAt, &q.UpdatedAt, &tag,
		); err != nil {
			return nil, err
		}

		i, seen := index[q.ID]
		if !seen {
			q.Difficulty = types.Difficulty(difficulty)
			q.Tags = []string{}
			questions = append(questions, q)
			i = len(questions) - 1
			index[q.ID] = i
		}
		if tag.Valid {
			questions[i].Tags = append(questions[i].Tags, tag.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Tags = types.NormalizeTags(questions[i].Tags)
	}
	return questions, nil
}

func (s *SQLiteStorage) queryQuestions(ctx context.Context, q querier, where, orderBy string, args ...interface{}) ([]types.Question, error) {
	query := questionSelect
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + orderBy
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// Category operations

// GetAllCategories loads every category with its questions and their tags
// in a single joined query
func (s *SQLiteStorage) GetAllCategories(ctx context.Context) ([]types.Category, error) {
	categories, err := cached(s.cache, "categories", func() ([]types.Category, error) {
		return s.getAllCategories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return types.CloneCategories(categories), nil
}

func (s *SQLiteStorage) getAllCategories(ctx context.Context) ([]types.Category, error) {
	query := `
		SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		       q.id, q.title, q.content, q.difficulty, q.created_at, q.updated_at,
		       t.name
		FROM categories c
		LEFT JOIN questions q ON q.category_id = c.id
		LEFT JOIN question_tags qt ON qt.question_id = q.id
		LEFT JOIN tags t ON t.id = qt.tag_id
		ORDER BY c.created_at, c.id, q.created_at, q.id, t.name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError("sqlite.getAllCategories", err)
	}
	defer func() { _ = rows.Close() }()

	categories := make([]types.Category, 0)
	catIndex := make(map[string]int)
	qIndex := make(map[string]int)

	for rows.Next() {
		var c types.Category
		var description sql.NullString
		var qID, qTitle, qContent, qDifficulty, tag sql.NullString
		var qCreated, qUpdated sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.Name, &description, &c.CreatedAt, &c.UpdatedAt,
			&qID, &qTitle, &qContent, &qDifficulty, &qCreated, &qUpdated,
			&tag,
		); err != nil {
			return nil, mapError("sqlite.getAllCategories", err)
		}

		ci, seen := catIndex[c.ID]
		if !seen {
			c.Description = description.String
			c.Questions = []types.Question{}
			categories = append(categories, c)
			ci = len(categories) - 1
			catIndex[c.ID] = ci
		}
		if !qID.Valid {
			continue
		}

		cat := &categories[ci]
		qi, seen := qIndex[qID.String]
		if !seen {
			cat.Questions = append(cat.Questions, types.Question{
				ID:           qID.String,
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				Title:        qTitle.String,
				Content:      qContent.String,
				Difficulty:   types.Difficulty(qDifficulty.String),
				Tags:         []string{},
				CreatedAt:    qCreated.Time,
				UpdatedAt:    qUpdated.Time,
			})
			qi = len(cat.Questions) - 1
			qIndex[qID.String] = qi
		}
		if tag.Valid {
			cat.Questions[qi].Tags = append(cat.Questions[qi].Tags, tag.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("sqlite.getAllCategories", err)
	}

	for ci := range categories {
		categories[ci].QuestionCount = len(categories[ci].Questions)
	}
	return categories, nil
}

func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id string) (*types.Category, error) {
	category, err := cached(s.cache, "category:"+id, func() (types.Category, error) {
		c, err := getCategory(ctx, s.db, id)
		if err != nil {
			return types.Category{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, err
	}
	out := category.Clone()
	return &out, nil
}

// getCategory loads a category row with its question count
func getCategory(ctx context.Context, q querier, id string) (*types.Category, error) {
	query := `
		SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM questions WHERE category_id = c.id)
		FROM categories c
		WHERE c.id = ?
	`
	var c types.Category
	var description sql.NullString
	err := q.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &description, &c.CreatedAt, &c.UpdatedAt, &c.QuestionCount,
	)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.KindNotFound, "sqlite.getCategory", "category %s not found", id)
	}
	if err != nil {
		return nil, mapError("sqlite.getCategory", err)
	}
	c.Description = description.String
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLiteStorage) CreateCategory(ctx context.Context, in types.NewCategory) (*types.Category, error) {
	const op = "sqlite.createCategory"

	id := in.ID
	if id == "" {
		id = s.ids.Generate(in.Name)
	}
	ts := now()
	category := types.Category{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := types.ValidateCategory(&category, false); err != nil {
		return nil, err
	}

	if err := insertCategory(ctx, s.db, &category); err != nil {
		return nil, mapError(op, err)
	}

	s.cache.Clear()
	return &category, nil
}

func insertCategory(ctx context.Context, q querier, c *types.Category) error {
	query := `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, c.ID, c.Name, nullString(c.Description), c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *SQLiteStorage) UpdateCategory(ctx context.Context, id string, updates types.CategoryUpdate) (*types.Category, error) {
	const op = "sqlite.updateCategory"

	var updated *types.Category
	err := s.withTx(ctx, op, func(q querier) error {
		current, err := getCategory(ctx, q, id)
		if err != nil {
			return err
		}
		if updates.Name != nil {
			current.Name = strings.TrimSpace(*updates.Name)
		}
		if updates.Description != nil {
			current.Description = *updates.Description
		}
		if err := types.ValidateCategory(current, true); err != nil {
			return err
		}
		current.UpdatedAt = now()

		query := `UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ?`
		if _, err := q.ExecContext(ctx, query, current.Name, nullString(current.Description), current.UpdatedAt, id); err != nil {
			return mapError(op, err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	return updated, nil
}

// DeleteCategory removes an empty category. It never cascades: a category
// that still owns questions is rejected with HAS_DEPENDENTS.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id string) (*types.Category, error) {
	const op = "sqlite.deleteCategory"

	var deleted *types.Category
	err := s.withTx(ctx, op, func(q querier) error {
		var count int
		if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions WHERE category_id = ?", id).Scan(&count); err != nil {
			return mapError(op, err)
		}
		if count > 0 {
			return types.NewError(types.KindHasDependents, op,
				"category %s contains %d questions; delete them first", id, count)
		}

		current, err := getCategory(ctx, q, id)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
			return mapError(op, err)
		}
		deleted = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	return deleted, nil
}

// Question operations

func (s *SQLiteStorage) GetQuestionsByCategory(ctx context.Context, categoryID string) ([]types.Question, error) {
	questions, err := cached(s.cache, "questions:category:"+categoryID, func() ([]types.Question, error) {
		qs, err := s.queryQuestions(ctx, s.db, "q.category_id = ?", "q.created_at, q.id, t.name", categoryID)
		return qs, mapError("sqlite.getQuestionsByCategory", err)
	})
	if err != nil {
		return nil, err
	}
	return types.CloneQuestions(questions), nil
}

func (s *SQLiteStorage) GetQuestionByID(ctx context.Context, id string) (*types.Question, error) {
	question, err := cached(s.cache, "question:"+id, func() (types.Question, error) {
		q, err := s.getQuestion(ctx, s.db, id)
		if err != nil {
			return types.Question{}, err
		}
		return *q, nil
	})
	if err != nil {
		return nil, err
	}
	out := question.Clone()
	return &out, nil
}

func (s *SQLiteStorage) getQuestion(ctx context.Context, q querier, id string) (*types.Question, error) {
	questions, err := s.queryQuestions(ctx, q, "q.id = ?", "t.name", id)
	if err != nil {
		return nil, mapError("sqlite.getQuestion", err)
	}
	if len(questions) == 0 {
		return nil, types.NewError(types.KindNotFound, "sqlite.getQuestion", "question %s not found", id)
	}
	return &questions[0], nil
}

// SearchQuestions filters by category and difficulty in SQL. The text match
// and the any-of tag filter run on the fetched rows: SQLite's LOWER and LIKE
// fold ASCII only, so case-insensitive matching of title and content is done
// with Unicode case folding in Go.
func (s *SQLiteStorage) SearchQuestions(ctx context.Context, query string, filters types.SearchFilters) ([]types.Question, error) {
	var conds []string
	var args []interface{}

	if filters.CategoryID != "" {
		conds = append(conds, "q.category_id = ?")
		args = append(args, filters.CategoryID)
	}
	if filters.Difficulty != "" {
		conds = append(conds, "q.difficulty = ?")
		args = append(args, string(filters.Difficulty))
	}

	questions, err := s.queryQuestions(ctx, s.db, strings.Join(conds, " AND "), "q.created_at DESC, q.id, t.name", args...)
	if err != nil {
		return nil, mapError("sqlite.searchQuestions", err)
	}

	term := strings.ToLower(strings.TrimSpace(query))
	results := make([]types.Question, 0, len(questions))
	for _, q := range questions {
		if term != "" && !containsFold(q.Title, term) && !containsFold(q.Content, term) {
			continue
		}
		if len(filters.Tags) > 0 && !q.HasAnyTag(filters.Tags) {
			continue
		}
		results = append(results, q)
	}
	return results, nil
}

// containsFold reports whether lowerTerm occurs in s ignoring case. lowerTerm
// must already be lowercased.
func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

// CreateQuestion inserts the question and links its tags in one
// transaction. The owning category must exist.
func (s *SQLiteStorage) CreateQuestion(ctx context.Context, in types.NewQuestion) (*types.Question, error) {
	const op = "sqlite.createQuestion"

	id := in.ID
	if id == "" {
		id = s.ids.Generate(in.Title)
	}
	ts := now()
	question := types.Question{
		ID:         id,
		CategoryID: in.CategoryID,
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		Difficulty: in.Difficulty.OrDefault(),
		Tags:       types.NormalizeTags(in.Tags),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if err := types.ValidateQuestion(&question, false); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, op, func(q querier) error {
		category, err := getCategory(ctx, q, question.CategoryID)
		if err != nil {
			return err
		}
		question.CategoryName = category.Name
		return insertQuestion(ctx, q, op, &question)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	return &question, nil
}

func insertQuestion(ctx context.Context, q querier, op string, question *types.Question) error {
	query := `
		INSERT INTO questions (id, category_id, title, content, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		question.ID, question.CategoryID, question.Title, question.Content,
		string(question.Difficulty), question.CreatedAt, question.UpdatedAt)
	if err != nil {
		return mapError(op, err)
	}
	return addTagsToQuestion(ctx, q, question.ID, question.Tags)
}

func (s *SQLiteStorage) UpdateQuestion(ctx context.Context, id string, updates types.QuestionUpdate) (*types.Question, error) {
	const op = "sqlite.updateQuestion"

	var updated *types.Question
	err := s.withTx(ctx, op, func(q querier) error {
		current, err := s.getQuestion(ctx, q, id)
		if err != nil {
			return err
		}

		if updates.CategoryID != nil && *updates.CategoryID != current.CategoryID {
			category, err := getCategory(ctx, q, *updates.CategoryID)
			if err != nil {
				return err
			}
			current.CategoryID = category.ID
			current.CategoryName = category.Name
		}
		if updates.Title != nil {
			current.Title = strings.TrimSpace(*updates.Title)
		}
		if updates.Content != nil {
			current.Content = *updates.Content
		}
		if updates.Difficulty != nil {
			current.Difficulty = updates.Difficulty.OrDefault()
		}
		if updates.Tags != nil {
			current.Tags = types.NormalizeTags(*updates.Tags)
		}
		if err := types.ValidateQuestion(current, true); err != nil {
			return err
		}
		current.UpdatedAt = now()

		query := `
			UPDATE questions
			SET category_id = ?, title = ?, content = ?, difficulty = ?, updated_at = ?
			WHERE id = ?
		`
		if _, err := q.ExecContext(ctx, query,
			current.CategoryID, current.Title, current.Content,
			string(current.Difficulty), current.UpdatedAt, id); err != nil {
			return mapError(op, err)
		}

		if updates.Tags != nil {
			if err := updateQuestionTags(ctx, q, id, current.Tags); err != nil {
				return err
			}
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	return updated, nil
}

func (s *SQLiteStorage) DeleteQuestion(ctx context.Context, id string) (*types.Question, error) {
	const op = "sqlite.deleteQuestion"

	var deleted *types.Question
	err := s.withTx(ctx, op, func(q querier) error {
		current, err := s.getQuestion(ctx, q, id)
		if err != nil {
			return err
		}
		// question_tags rows go with the question (ON DELETE CASCADE)
		if _, err := q.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id); err != nil {
			return mapError(op, err)
		}
		deleted = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	return deleted, nil
}

// Tag operations

// addTagsToQuestion creates missing tags, resolves every name to its id and
// links them to the question. Links that already exist are left alone.
func addTagsToQuestion(ctx context.Context, q querier, questionID string, tags []string) error {
	const op = "sqlite.addTagsToQuestion"
	if len(tags) == 0 {
		return nil
	}

	for _, name := range tags {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
			return mapError(op, err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	args := make([]interface{}, len(tags))
	for i, name := range tags {
		args[i] = name
	}
	rows, err := q.QueryContext(ctx, "SELECT id FROM tags WHERE name IN ("+placeholders+")", args...)
	if err != nil {
		return mapError(op, err)
	}
	var tagIDs []int64
	for rows.Next() {
		var tagID int64
		if err := rows.Scan(&tagID); err != nil {
			_ = rows.Close()
			return mapError(op, err)
		}
		tagIDs = append(tagIDs, tagID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return mapError(op, err)
	}
	_ = rows.Close()

	for _, tagID := range tagIDs {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO question_tags (question_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			questionID, tagID); err != nil {
			return mapError(op, err)
		}
	}
	return nil
}

// updateQuestionTags replaces the question's whole tag set
func updateQuestionTags(ctx context.Context, q querier, questionID string, tags []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM question_tags WHERE question_id = ?", questionID); err != nil {
		return mapError("sqlite.updateQuestionTags", err)
	}
	return addTagsToQuestion(ctx, q, questionID, tags)
}

// UpdateQuestionTags replaces the tag set of a question. Applying the same
// set twice leaves the same links as applying it once.
func (s *SQLiteStorage) UpdateQuestionTags(ctx context.Context, questionID string, tags []string) error {
	const op = "sqlite.updateQuestionTags"
	tags = types.NormalizeTags(tags)
	for _, name := range tags {
		if err := types.ValidateTag(name); err != nil {
			return err
		}
	}

	err := s.withTx(ctx, op, func(q querier) error {
		if _, err := s.getQuestion(ctx, q, questionID); err != nil {
			return err
		}
		return updateQuestionTags(ctx, q, questionID, tags)
	})
	if err != nil {
		return err
	}

	s.cache.Clear()
	return nil
}

// CreateTag stores a tag on its own. An existing name fails with
// DUPLICATE_ID.
func (s *SQLiteStorage) CreateTag(ctx context.Context, name string) error {
	const op = "sqlite.createTag"
	name = strings.TrimSpace(name)
	if err := types.ValidateTag(name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name); err != nil {
		return mapError(op, err)
	}
	s.cache.Clear()
	return nil
}

// GetAllTags returns every stored tag name in ascending order, including
// tags no longer referenced by any question
func (s *SQLiteStorage) GetAllTags(ctx context.Context) ([]string, error) {
	tags, err := cached(s.cache, "tags", func() ([]string, error) {
		rows, err := s.db.QueryContext(ctx, "SELECT name FROM tags ORDER BY name")
		if err != nil {
			return nil, mapError("sqlite.getAllTags", err)
		}
		defer func() { _ = rows.Close() }()

		names := make([]string, 0)
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, mapError("sqlite.getAllTags", err)
			}
			names = append(names, name)
		}
		return names, mapError("sqlite.getAllTags", rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), tags...), nil
}

func (s *SQLiteStorage) GetQuestionsByTag(ctx context.Context, name string) ([]types.Question, error) {
	where := `q.id IN (
		SELECT qt2.question_id FROM question_tags qt2
		JOIN tags t2 ON t2.id = qt2.tag_id
		WHERE t2.name = ?
	)`
	questions, err := s.queryQuestions(ctx, s.db, where, "q.created_at, q.id, t.name", name)
	if err != nil {
		return nil, mapError("sqlite.getQuestionsByTag", err)
	}
	return questions, nil
}

// Statistics and data exchange

// GetStatistics runs the category, tag and question counts concurrently and
// tallies difficulties from the scanned question rows
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	const op = "sqlite.getStatistics"
	stats := &types.Statistics{LastUpdated: now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM categories").Scan(&stats.TotalCategories)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM tags").Scan(&stats.TotalTags)
	})
	var total int
	var dist types.DifficultyDistribution
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, "SELECT difficulty FROM questions")
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var d string
			if err := rows.Scan(&d); err != nil {
				return err
			}
			total++
			dist.Add(types.Difficulty(d))
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, mapError(op, err)
	}

	stats.TotalQuestions = total
	stats.DifficultyDistribution = dist
	return stats, nil
}

// ExportData returns the whole content tree in the file layout
func (s *SQLiteStorage) ExportData(ctx context.Context) (*types.Document, error) {
	categories, err := s.GetAllCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &types.Document{Categories: categories}, nil
}

// ImportData replaces all content with doc in one transaction, keeping the
// identifiers it carries
func (s *SQLiteStorage) ImportData(ctx context.Context, doc *types.Document) error {
	const op = "sqlite.importData"
	prepared, err := prepareImport(doc)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, op, func(q querier) error {
		for _, stmt := range []string{
			"DELETE FROM question_tags",
			"DELETE FROM questions",
			"DELETE FROM categories",
			"DELETE FROM tags",
		} {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return mapError(op, err)
			}
		}

		for ci := range prepared.Categories {
			c := &prepared.Categories[ci]
			if err := insertCategory(ctx, q, c); err != nil {
				return mapError(op, err)
			}
			for qi := range c.Questions {
				question := c.Questions[qi]
				if question.UpdatedAt.IsZero() {
					question.UpdatedAt = question.CreatedAt
				}
				if err := insertQuestion(ctx, q, op, &question); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Clear()
	return nil
}

// HealthCheck issues a bounded trivial query and, on success, reports
// current statistics
func (s *SQLiteStorage) HealthCheck(ctx context.Context) *types.Health {
	health := &types.Health{
		Storage:      BackendDatabase,
		CacheEnabled: s.cache.Enabled(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
	defer cancel()

	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM categories LIMIT 1").Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		health.Status = types.HealthUnhealthy
		health.Error = err.Error()
		return health
	}

	stats, err := s.GetStatistics(ctx)
	if err != nil {
		health.Status = types.HealthUnhealthy
		health.Error = err.Error()
		return health
	}
	health.Status = types.HealthHealthy
	health.Statistics = stats
	return health
}
