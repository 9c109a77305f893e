package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/questionbank/pkg/types"
)

const (
	// DocumentFileName is the name of the file backend's document
	DocumentFileName = "questionBankData.json"

	documentCacheKey = "document"
)

// FileStorage implements Storage over a single JSON document holding the
// whole content tree. Every mutation is a read-modify-write of the document;
// mutations are serialized so concurrent writers cannot lose each other's
// changes. Reads are served from the cache while it is fresh.
type FileStorage struct {
	dataPath string
	cache    *Cache
	ids      *IDGenerator
	logger   *zap.Logger

	mu sync.Mutex // serializes read-modify-write cycles

	watchMu     sync.Mutex
	stopWatcher context.CancelFunc
}

// FileOption configures a FileStorage
type FileOption func(*FileStorage)

// WithFileCache sets the cache owned by the backend
func WithFileCache(c *Cache) FileOption {
	return func(s *FileStorage) { s.cache = c }
}

// WithFileIDGenerator sets the identifier generator
func WithFileIDGenerator(g *IDGenerator) FileOption {
	return func(s *FileStorage) { s.ids = g }
}

// WithFileLogger sets the logger
func WithFileLogger(l *zap.Logger) FileOption {
	return func(s *FileStorage) { s.logger = l }
}

// NewFileStorage creates a file backend storing its document under dataPath.
// The directory does not need to exist yet; it is created on first write.
func NewFileStorage(dataPath string, opts ...FileOption) (*FileStorage, error) {
	if strings.TrimSpace(dataPath) == "" {
		return nil, types.NewError(types.KindBackendUnavailable, "file.open", "data path is required")
	}
	if info, err := os.Stat(dataPath); err == nil && !info.IsDir() {
		return nil, types.NewError(types.KindBackendUnavailable, "file.open", "data path %s is not a directory", dataPath)
	}

	s := &FileStorage{dataPath: dataPath}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewCache(DefaultCacheConfig())
	}
	if s.ids == nil {
		s.ids = NewIDGenerator()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// DataPath returns the directory holding the document
func (s *FileStorage) DataPath() string {
	return s.dataPath
}

// DocumentPath returns the full path of the document
func (s *FileStorage) DocumentPath() string {
	return filepath.Join(s.dataPath, DocumentFileName)
}

// read returns a private copy of the document. A missing file yields an
// empty tree.
func (s *FileStorage) read(ctx context.Context) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(types.KindBackend, "file.read", err, "read cancelled")
	}
	doc, err := cached(s.cache, documentCacheKey, s.load)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func (s *FileStorage) load() (*types.Document, error) {
	data, err := os.ReadFile(s.DocumentPath())
	if errors.Is(err, fs.ErrNotExist) {
		return &types.Document{Categories: []types.Category{}}, nil
	}
	if err != nil {
		return nil, types.WrapError(types.KindBackend, "file.read", err, "failed to read data file")
	}

	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, types.WrapError(types.KindBackend, "file.read", err, "failed to parse data file")
	}
	if doc.Categories == nil {
		doc.Categories = []types.Category{}
	}
	attachOwners(&doc)
	return &doc, nil
}

// write replaces the document on disk through a temp file and rename, then
// clears the cache
func (s *FileStorage) write(doc *types.Document) error {
	out := doc.Clone()
	detachOwners(out)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return types.WrapError(types.KindBackend, "file.write", err, "failed to encode data file")
	}
	if err := os.MkdirAll(s.dataPath, 0755); err != nil {
		return types.WrapError(types.KindBackend, "file.write", err, "failed to create data directory")
	}

	tmp, err := os.CreateTemp(s.dataPath, DocumentFileName+".*.tmp")
	if err != nil {
		return types.WrapError(types.KindBackend, "file.write", err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return types.WrapError(types.KindBackend, "file.write", err, "failed to write data file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return types.WrapError(types.KindBackend, "file.write", err, "failed to sync data file")
	}
	if err := tmp.Close(); err != nil {
		return types.WrapError(types.KindBackend, "file.write", err, "failed to close data file")
	}
	if err := os.Rename(tmpName, s.DocumentPath()); err != nil {
		return types.WrapError(types.KindBackend, "file.write", err, "failed to replace data file")
	}

	s.cache.Clear()
	return nil
}

// attachOwners fills the read-side fields that the file layout leaves out
func attachOwners(doc *types.Document) {
	for ci := range doc.Categories {
		c := &doc.Categories[ci]
		if c.Questions == nil {
			c.Questions = []types.Question{}
		}
		c.QuestionCount = len(c.Questions)
		for qi := range c.Questions {
			q := &c.Questions[qi]
			q.CategoryID = c.ID
			q.CategoryName = c.Name
			if q.Tags == nil {
				q.Tags = []string{}
			}
		}
	}
}

// detachOwners strips the read-side fields before persisting
func detachOwners(doc *types.Document) {
	for ci := range doc.Categories {
		c := &doc.Categories[ci]
		c.QuestionCount = 0
		for qi := range c.Questions {
			c.Questions[qi].CategoryID = ""
			c.Questions[qi].CategoryName = ""
		}
	}
}

func findCategory(doc *types.Document, id string) int {
	for i := range doc.Categories {
		if doc.Categories[i].ID == id {
			return i
		}
	}
	return -1
}

func findQuestion(doc *types.Document, id string) (int, int) {
	for ci := range doc.Categories {
		for qi := range doc.Categories[ci].Questions {
			if doc.Categories[ci].Questions[qi].ID == id {
				return ci, qi
			}
		}
	}
	return -1, -1
}

func now() time.Time {
	return time.Now().UTC()
}

// Category operations

func (s *FileStorage) GetAllCategories(ctx context.Context) ([]types.Category, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Categories, nil
}

func (s *FileStorage) GetCategoryByID(ctx context.Context, id string) (*types.Category, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci := findCategory(doc, id)
	if ci < 0 {
		return nil, types.NewError(types.KindNotFound, "file.getCategory", "category %s not found", id)
	}
	return &doc.Categories[ci], nil
}

func (s *FileStorage) CreateCategory(ctx context.Context, in types.NewCategory) (*types.Category, error) {
	const op = "file.createCategory"

	id := in.ID
	if id == "" {
		id = s.ids.Generate(in.Name)
	}
	ts := now()
	category := types.Category{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Questions:   []types.Question{},
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := types.ValidateCategory(&category, false); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if findCategory(doc, id) >= 0 {
		return nil, types.NewError(types.KindDuplicateID, op, "category %s already exists", id)
	}

	doc.Categories = append(doc.Categories, category)
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *FileStorage) UpdateCategory(ctx context.Context, id string, updates types.CategoryUpdate) (*types.Category, error) {
	const op = "file.updateCategory"

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci := findCategory(doc, id)
	if ci < 0 {
		return nil, types.NewError(types.KindNotFound, op, "category %s not found", id)
	}

	merged := doc.Categories[ci]
	if updates.Name != nil {
		merged.Name = strings.TrimSpace(*updates.Name)
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if err := types.ValidateCategory(&merged, true); err != nil {
		return nil, err
	}
	merged.UpdatedAt = now()
	for qi := range merged.Questions {
		merged.Questions[qi].CategoryName = merged.Name
	}

	doc.Categories[ci] = merged
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return &merged, nil
}

// DeleteCategory removes an empty category. A category that still owns
// questions is rejected with HAS_DEPENDENTS.
func (s *FileStorage) DeleteCategory(ctx context.Context, id string) (*types.Category, error) {
	const op = "file.deleteCategory"

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci := findCategory(doc, id)
	if ci < 0 {
		return nil, types.NewError(types.KindNotFound, op, "category %s not found", id)
	}
	deleted := doc.Categories[ci]
	if n := len(deleted.Questions); n > 0 {
		return nil, types.NewError(types.KindHasDependents, op,
			"category %s contains %d questions; delete them first", id, n)
	}

	doc.Categories = append(doc.Categories[:ci], doc.Categories[ci+1:]...)
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return &deleted, nil
}

// Question operations

func (s *FileStorage) GetQuestionsByCategory(ctx context.Context, categoryID string) ([]types.Question, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci := findCategory(doc, categoryID)
	if ci < 0 {
		return []types.Question{}, nil
	}
	return doc.Categories[ci].Questions, nil
}

func (s *FileStorage) GetQuestionByID(ctx context.Context, id string) (*types.Question, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci, qi := findQuestion(doc, id)
	if ci < 0 {
		return nil, types.NewError(types.KindNotFound, "file.getQuestion", "question %s not found", id)
	}
	return &doc.Categories[ci].Questions[qi], nil
}

// SearchQuestions flattens every question with its owning category attached
// and keeps the ones matching query (case-insensitive substring of title,
// content or a tag) and every non-empty filter
func (s *FileStorage) SearchQuestions(ctx context.Context, query string, filters types.SearchFilters) ([]types.Question, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]types.Question, 0)
	for _, c := range doc.Categories {
		if filters.CategoryID != "" && c.ID != filters.CategoryID {
			continue
		}
		for _, q := range c.Questions {
			if !q.MatchesText(query) {
				continue
			}
			if filters.Difficulty != "" && q.Difficulty != filters.Difficulty {
				continue
			}
			if len(filters.Tags) > 0 && !q.HasAnyTag(filters.Tags) {
				continue
			}
			results = append(results, q)
		}
	}
	return results, nil
}

func (s *FileStorage) CreateQuestion(ctx context.Context, in types.NewQuestion) (*types.Question, error) {
	const op = "file.createQuestion"

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

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci := findCategory(doc, in.CategoryID)
	if ci < 0 {
		return nil, types.NewError(types.KindNotFound, op, "category %s not found", in.CategoryID)
	}
	if c, _ := findQuestion(doc, id); c >= 0 {
		return nil, types.NewError(types.KindDuplicateID, op, "question %s already exists", id)
	}

	question.CategoryName = doc.Categories[ci].Name
	doc.Categories[ci].Questions = append(doc.Categories[ci].Questions, question)
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return &question, nil
}

// UpdateQuestion applies updates to a question. Changing CategoryID moves
// the question to the new owner, which must exist.
func (s *FileStorage) UpdateQuestion(ctx context.Context, id string, updates types.QuestionUpdate) (*types.Question, error) {
	const op = "file.updateQuestion"

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci, qi := findQuestion(doc, id)
	if ci < 0 {
		return nil, types.NewError(types.KindNotFound, op, "question %s not found", id)
	}

	merged := doc.Categories[ci].Questions[qi]
	target := ci
	if updates.CategoryID != nil && *updates.CategoryID != merged.CategoryID {
		target = findCategory(doc, *updates.CategoryID)
		if target < 0 {
			return nil, types.NewError(types.KindNotFound, op, "category %s not found", *updates.CategoryID)
		}
		merged.CategoryID = *updates.CategoryID
		merged.CategoryName = doc.Categories[target].Name
	}
	if updates.Title != nil {
		merged.Title = strings.TrimSpace(*updates.Title)
	}
	if updates.Content != nil {
		merged.Content = *updates.Content
	}
	if updates.Difficulty != nil {
		merged.Difficulty = updates.Difficulty.OrDefault()
	}
	if updates.Tags != nil {
		merged.Tags = types.NormalizeTags(*updates.Tags)
	}
	if err := types.ValidateQuestion(&merged, true); err != nil {
		return nil, err
	}
	merged.UpdatedAt = now()

	if target == ci {
		doc.Categories[ci].Questions[qi] = merged
	} else {
		qs := doc.Categories[ci].Questions
		doc.Categories[ci].Questions = append(qs[:qi], qs[qi+1:]...)
		doc.Categories[target].Questions = append(doc.Categories[target].Questions, merged)
	}
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *FileStorage) DeleteQuestion(ctx context.Context, id string) (*types.Question, error) {
	const op = "file.deleteQuestion"

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	ci, qi := findQuestion(doc, id)
	if ci < 0 {
		return nil, types.NewError(types.KindNotFound, op, "question %s not found", id)
	}

	qs := doc.Categories[ci].Questions
	deleted := qs[qi]
	doc.Categories[ci].Questions = append(qs[:qi], qs[qi+1:]...)
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return &deleted, nil
}

// Tag operations

func (s *FileStorage) GetAllTags(ctx context.Context) ([]string, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.TagNames(), nil
}

func (s *FileStorage) GetQuestionsByTag(ctx context.Context, name string) ([]types.Question, error) {
	return s.SearchQuestions(ctx, "", types.SearchFilters{Tags: []string{name}})
}

// Statistics and data exchange

func (s *FileStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return documentStatistics(doc), nil
}

func documentStatistics(doc *types.Document) *types.Statistics {
	stats := &types.Statistics{
		TotalCategories: len(doc.Categories),
		TotalQuestions:  doc.QuestionCount(),
		TotalTags:       len(doc.TagNames()),
		LastUpdated:     now(),
	}
	for _, c := range doc.Categories {
		for _, q := range c.Questions {
			stats.DifficultyDistribution.Add(q.Difficulty)
		}
	}
	return stats
}

func (s *FileStorage) ExportData(ctx context.Context) (*types.Document, error) {
	return s.read(ctx)
}

// ImportData replaces the whole document with doc after validating every
// record in it
func (s *FileStorage) ImportData(ctx context.Context, doc *types.Document) error {
	prepared, err := prepareImport(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return types.WrapError(types.KindBackend, "file.import", err, "import cancelled")
	}
	return s.write(prepared)
}

// prepareImport validates an import document and returns a normalized copy:
// timestamps filled, difficulties defaulted, tag sets canonical, ownership
// taken from the enclosing category
func prepareImport(doc *types.Document) (*types.Document, error) {
	const op = "import"
	if doc == nil || doc.Categories == nil {
		return nil, types.NewError(types.KindValidation, op, "import data must contain a categories array")
	}

	out := doc.Clone()
	ts := now()
	categoryIDs := make(map[string]struct{})
	questionIDs := make(map[string]struct{})

	for ci := range out.Categories {
		c := &out.Categories[ci]
		if c.CreatedAt.IsZero() {
			c.CreatedAt = ts
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = c.CreatedAt
		}
		if err := types.ValidateCategory(c, false); err != nil {
			return nil, err
		}
		if _, dup := categoryIDs[c.ID]; dup {
			return nil, types.NewError(types.KindDuplicateID, op, "category %s appears more than once", c.ID)
		}
		categoryIDs[c.ID] = struct{}{}
		if c.Questions == nil {
			c.Questions = []types.Question{}
		}

		for qi := range c.Questions {
			q := &c.Questions[qi]
			q.CategoryID = c.ID
			q.CategoryName = c.Name
			q.Difficulty = q.Difficulty.OrDefault()
			q.Tags = types.NormalizeTags(q.Tags)
			if q.CreatedAt.IsZero() {
				q.CreatedAt = ts
			}
			if err := types.ValidateQuestion(q, false); err != nil {
				return nil, err
			}
			if _, dup := questionIDs[q.ID]; dup {
				return nil, types.NewError(types.KindDuplicateID, op, "question %s appears more than once", q.ID)
			}
			questionIDs[q.ID] = struct{}{}
		}
		c.QuestionCount = len(c.Questions)
	}
	return out, nil
}

// HealthCheck reads the document and reports statistics
func (s *FileStorage) HealthCheck(ctx context.Context) *types.Health {
	health := &types.Health{
		Storage:      BackendFile,
		DataPath:     s.dataPath,
		CacheEnabled: s.cache.Enabled(),
	}
	doc, err := s.read(ctx)
	if err != nil {
		health.Status = types.HealthUnhealthy
		health.Error = err.Error()
		return health
	}
	health.Status = types.HealthHealthy
	health.Statistics = documentStatistics(doc)
	return health
}

func (s *FileStorage) ClearCache() {
	s.cache.Clear()
}

// Close stops the change watcher, if one is running
func (s *FileStorage) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stopWatcher != nil {
		s.stopWatcher()
		s.stopWatcher = nil
	}
	return nil
}
