package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/questionbank/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound           = -32001 // Category or question does not exist
	ErrorCodeDuplicateID        = -32002 // Identifier already taken
	ErrorCodeHasDependents      = -32003 // Category still owns questions
	ErrorCodeBackendUnavailable = -32004 // No usable storage backend
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

var (
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrInvalidTags      = errors.New("tags must be an array of strings")
)

// handleListCategories handles the list_categories tool invocation
func (s *Server) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	categories, err := s.store.GetAllCategories(ctx)
	if err != nil {
		return nil, s.storageError("list_categories", err)
	}

	if !getBoolDefault(args, "include_questions", false) {
		for i := range categories {
			categories[i].Questions = nil
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})), nil
}

// handleGetCategory handles the get_category tool invocation
func (s *Server) handleGetCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, s.storageError("get_category", err)
	}
	return mcp.NewToolResultText(formatJSON(category)), nil
}

// handleCreateCategory handles the create_category tool invocation
func (s *Server) handleCreateCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	in := types.NewCategory{
		ID:          getStringDefault(args, "id", ""),
		Name:        getStringDefault(args, "name", ""),
		Description: getStringDefault(args, "description", ""),
	}

	category, err := s.store.CreateCategory(ctx, in)
	if err != nil {
		return nil, s.storageError("create_category", err)
	}
	s.logger.Info("category created", zap.String("id", category.ID))
	return mcp.NewToolResultText(formatJSON(category)), nil
}

// handleUpdateCategory handles the update_category tool invocation
func (s *Server) handleUpdateCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	updates := types.CategoryUpdate{
		Name:        getStringPtr(args, "name"),
		Description: getStringPtr(args, "description"),
	}

	category, err := s.store.UpdateCategory(ctx, id, updates)
	if err != nil {
		return nil, s.storageError("update_category", err)
	}
	return mcp.NewToolResultText(formatJSON(category)), nil
}

// handleDeleteCategory handles the delete_category tool invocation
func (s *Server) handleDeleteCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	category, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		return nil, s.storageError("delete_category", err)
	}
	s.logger.Info("category deleted", zap.String("id", category.ID))
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":  true,
		"category": category,
	})), nil
}

// handleListQuestions handles the list_questions tool invocation
func (s *Server) handleListQuestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	categoryID := getStringDefault(args, "category_id", "")
	tag := getStringDefault(args, "tag", "")

	var questions []types.Question
	switch {
	case categoryID != "":
		questions, err = s.store.GetQuestionsByCategory(ctx, categoryID)
	case tag != "":
		questions, err = s.store.GetQuestionsByTag(ctx, tag)
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "category_id or tag parameter is required", map[string]interface{}{
			"param":  "category_id",
			"reason": "missing or empty",
		})
	}
	if err != nil {
		return nil, s.storageError("list_questions", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"questions": questions,
		"count":     len(questions),
	})), nil
}

// handleGetQuestion handles the get_question tool invocation
func (s *Server) handleGetQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	question, err := s.store.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, s.storageError("get_question", err)
	}
	return mcp.NewToolResultText(formatJSON(question)), nil
}

// handleSearchQuestions handles the search_questions tool invocation
func (s *Server) handleSearchQuestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", DefaultSearchLimit)
	if limit < 1 || limit > MaxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param":  "limit",
			"reason": fmt.Sprintf("got %d", limit),
		})
	}

	tags, err := getStringSlice(args, "tags")
	if err != nil {
		return nil, invalidParam("tags", err)
	}

	query := getStringDefault(args, "query", "")
	filters := types.SearchFilters{
		CategoryID: getStringDefault(args, "category_id", ""),
		Difficulty: types.Difficulty(getStringDefault(args, "difficulty", "")),
		Tags:       tags,
	}

	questions, err := s.store.SearchQuestions(ctx, query, filters)
	if err != nil {
		return nil, s.storageError("search_questions", err)
	}

	total := len(questions)
	if total > limit {
		questions = questions[:limit]
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":         query,
		"questions":     questions,
		"count":         len(questions),
		"total_matches": total,
	})), nil
}

// handleCreateQuestion handles the create_question tool invocation
func (s *Server) handleCreateQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}

	tags, err := getStringSlice(args, "tags")
	if err != nil {
		return nil, invalidParam("tags", err)
	}

	in := types.NewQuestion{
		ID:         getStringDefault(args, "id", ""),
		CategoryID: getStringDefault(args, "category_id", ""),
		Title:      getStringDefault(args, "title", ""),
		Content:    getStringDefault(args, "content", ""),
		Difficulty: types.Difficulty(getStringDefault(args, "difficulty", "")),
		Tags:       tags,
	}

	question, err := s.store.CreateQuestion(ctx, in)
	if err != nil {
		return nil, s.storageError("create_question", err)
	}
	s.logger.Info("question created",
		zap.String("id", question.ID),
		zap.String("category", question.CategoryID))
	return mcp.NewToolResultText(formatJSON(question)), nil
}

// handleUpdateQuestion handles the update_question tool invocation
func (s *Server) handleUpdateQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	updates := types.QuestionUpdate{
		CategoryID: getStringPtr(args, "category_id"),
		Title:      getStringPtr(args, "title"),
		Content:    getStringPtr(args, "content"),
	}
	if d := getStringPtr(args, "difficulty"); d != nil {
		difficulty := types.Difficulty(*d)
		updates.Difficulty = &difficulty
	}
	if _, ok := args["tags"]; ok {
		tags, err := getStringSlice(args, "tags")
		if err != nil {
			return nil, invalidParam("tags", err)
		}
		if tags == nil {
			tags = []string{}
		}
		updates.Tags = &tags
	}

	question, err := s.store.UpdateQuestion(ctx, id, updates)
	if err != nil {
		return nil, s.storageError("update_question", err)
	}
	return mcp.NewToolResultText(formatJSON(question)), nil
}

// handleDeleteQuestion handles the delete_question tool invocation
func (s *Server) handleDeleteQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArgs(request)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	question, err := s.store.DeleteQuestion(ctx, id)
	if err != nil {
		return nil, s.storageError("delete_question", err)
	}
	s.logger.Info("question deleted", zap.String("id", question.ID))
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":  true,
		"question": question,
	})), nil
}

// handleListTags handles the list_tags tool invocation
func (s *Server) handleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.store.GetAllTags(ctx)
	if err != nil {
		return nil, s.storageError("list_tags", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})), nil
}

// handleGetStatistics handles the get_statistics tool invocation
func (s *Server) handleGetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.GetStatistics(ctx)
	if err != nil {
		return nil, s.storageError("get_statistics", err)
	}
	return mcp.NewToolResultText(formatJSON(stats)), nil
}

// handleHealthCheck handles the health_check tool invocation. An unhealthy
// backend is a normal result, not a tool error.
func (s *Server) handleHealthCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.store.HealthCheck(ctx))), nil
}

// Helper functions

// storageError maps a storage error kind onto an MCP error code
func (s *Server) storageError(tool string, err error) error {
	data := map[string]interface{}{
		"kind":  string(types.KindOf(err)),
		"error": err.Error(),
	}

	switch types.KindOf(err) {
	case types.KindValidation:
		return newMCPError(ErrorCodeInvalidParams, "validation failed", data)
	case types.KindNotFound:
		return newMCPError(ErrorCodeNotFound, "not found", data)
	case types.KindDuplicateID:
		return newMCPError(ErrorCodeDuplicateID, "identifier already exists", data)
	case types.KindHasDependents:
		return newMCPError(ErrorCodeHasDependents, "category has questions", data)
	case types.KindBackendUnavailable:
		return newMCPError(ErrorCodeBackendUnavailable, "storage backend unavailable", data)
	}

	s.logger.Error("tool failed", zap.String("tool", tool), zap.Error(err))
	return newMCPError(ErrorCodeInternalError, "storage operation failed", data)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func invalidParam(param string, err error) error {
	return newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
		"param":  param,
		"reason": err.Error(),
	})
}

// toolArgs returns the request arguments; a call without arguments yields
// an empty map
func toolArgs(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, ErrInvalidArguments.Error(), nil)
	}
	return args, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringPtr returns nil when key is absent, so partial updates leave the
// field untouched
func getStringPtr(args map[string]interface{}, key string) *string {
	if val, ok := args[key].(string); ok {
		return &val
	}
	return nil
}

// getStringSlice extracts a string array parameter. Decoded JSON arrays
// arrive as []interface{}.
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	switch val := args[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, ErrInvalidTags
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, ErrInvalidTags
	}
}
