package storage

import (
	"context"

	"github.com/dshills/questionbank/pkg/types"
)

// Backend names reported in health checks
const (
	BackendFile     = "file"
	BackendDatabase = "database"
)

// Storage defines the contract shared by every content backend. Lookups of
// a record that does not exist fail with a NOT_FOUND error; every error
// returned is a *types.Error.
type Storage interface {
	// Category operations
	GetAllCategories(ctx context.Context) ([]types.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*types.Category, error)
	CreateCategory(ctx context.Context, in types.NewCategory) (*types.Category, error)
	UpdateCategory(ctx context.Context, id string, updates types.CategoryUpdate) (*types.Category, error)
	DeleteCategory(ctx context.Context, id string) (*types.Category, error)

	// Question operations
	GetQuestionsByCategory(ctx context.Context, categoryID string) ([]types.Question, error)
	GetQuestionByID(ctx context.Context, id string) (*types.Question, error)
	SearchQuestions(ctx context.Context, query string, filters types.SearchFilters) ([]types.Question, error)
	CreateQuestion(ctx context.Context, in types.NewQuestion) (*types.Question, error)
	UpdateQuestion(ctx context.Context, id string, updates types.QuestionUpdate) (*types.Question, error)
	DeleteQuestion(ctx context.Context, id string) (*types.Question, error)

	// Tag operations
	GetAllTags(ctx context.Context) ([]string, error)
	GetQuestionsByTag(ctx context.Context, name string) ([]types.Question, error)

	// Statistics and data exchange
	GetStatistics(ctx context.Context) (*types.Statistics, error)
	ExportData(ctx context.Context) (*types.Document, error)
	ImportData(ctx context.Context, doc *types.Document) error

	// HealthCheck never fails; problems are reported in the returned Health
	HealthCheck(ctx context.Context) *types.Health

	// ClearCache drops every cached read
	ClearCache()

	// Close releases the backend's resources
	Close() error
}

// TagCreator is implemented by backends that persist tags independently of
// the questions that use them
type TagCreator interface {
	CreateTag(ctx context.Context, name string) error
}
