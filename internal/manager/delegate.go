package manager

import (
	"context"

	"github.com/dshills/questionbank/pkg/types"
)

// Category operations

func (m *Manager) GetAllCategories(ctx context.Context) ([]types.Category, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.GetAllCategories(ctx)
}

func (m *Manager) GetCategoryByID(ctx context.Context, id string) (*types.Category, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.GetCategoryByID(ctx, id)
}

func (m *Manager) CreateCategory(ctx context.Context, in types.NewCategory) (*types.Category, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.CreateCategory(ctx, in)
}

func (m *Manager) UpdateCategory(ctx context.Context, id string, updates types.CategoryUpdate) (*types.Category, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.UpdateCategory(ctx, id, updates)
}

func (m *Manager) DeleteCategory(ctx context.Context, id string) (*types.Category, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.DeleteCategory(ctx, id)
}

// Question operations

func (m *Manager) GetQuestionsByCategory(ctx context.Context, categoryID string) ([]types.Question, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.GetQuestionsByCategory(ctx, categoryID)
}

func (m *Manager) GetQuestionByID(ctx context.Context, id string) (*types.Question, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.GetQuestionByID(ctx, id)
}

func (m *Manager) SearchQuestions(ctx context.Context, query string, filters types.SearchFilters) ([]types.Question, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.SearchQuestions(ctx, query, filters)
}

func (m *Manager) CreateQuestion(ctx context.Context, in types.NewQuestion) (*types.Question, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.CreateQuestion(ctx, in)
}

func (m *Manager) UpdateQuestion(ctx context.Context, id string, updates types.QuestionUpdate) (*types.Question, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.UpdateQuestion(ctx, id, updates)
}

func (m *Manager) DeleteQuestion(ctx context.Context, id string) (*types.Question, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.DeleteQuestion(ctx, id)
}

// Tag operations

func (m *Manager) GetAllTags(ctx context.Context) ([]string, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.GetAllTags(ctx)
}

func (m *Manager) GetQuestionsByTag(ctx context.Context, name string) ([]types.Question, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.GetQuestionsByTag(ctx, name)
}

// Statistics and data exchange

func (m *Manager) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.GetStatistics(ctx)
}

func (m *Manager) ExportData(ctx context.Context) (*types.Document, error) {
	s, err := m.Storage()
	if err != nil {
		return nil, err
	}
	return s.ExportData(ctx)
}

func (m *Manager) ImportData(ctx context.Context, doc *types.Document) error {
	s, err := m.Storage()
	if err != nil {
		return err
	}
	return s.ImportData(ctx, doc)
}

// HealthCheck reports the active backend's health. Before Initialize it
// reports unhealthy rather than failing.
func (m *Manager) HealthCheck(ctx context.Context) *types.Health {
	s, err := m.Storage()
	if err != nil {
		return &types.Health{Status: types.HealthUnhealthy, Error: err.Error()}
	}
	return s.HealthCheck(ctx)
}

// ClearCache drops the active backend's cached reads
func (m *Manager) ClearCache() {
	if s, err := m.Storage(); err == nil {
		s.ClearCache()
	}
}
