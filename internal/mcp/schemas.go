package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var difficultyEnum = []string{"easy", "medium", "hard"}

func idProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func tagsProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "string",
		},
	}
}

// listCategoriesTool returns the tool definition for list_categories
func listCategoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_categories",
		Description: "List all question categories with their question counts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"include_questions": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include every question of each category",
					"default":     false,
				},
			},
		},
	}
}

// getCategoryTool returns the tool definition for get_category
func getCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_category",
		Description: "Get a single category by identifier",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Category identifier"),
			},
			Required: []string{"id"},
		},
	}
}

// createCategoryTool returns the tool definition for create_category
func createCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_category",
		Description: "Create a category. The identifier is derived from the name when omitted.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Optional explicit identifier (max 100 characters)"),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Category name (max 100 characters)",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Optional description (max 500 characters)",
				},
			},
			Required: []string{"name"},
		},
	}
}

// updateCategoryTool returns the tool definition for update_category
func updateCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_category",
		Description: "Update the name or description of a category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Category identifier"),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "New name",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "New description",
				},
			},
			Required: []string{"id"},
		},
	}
}

// deleteCategoryTool returns the tool definition for delete_category
func deleteCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_category",
		Description: "Delete an empty category. Fails while the category still has questions.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Category identifier"),
			},
			Required: []string{"id"},
		},
	}
}

// listQuestionsTool returns the tool definition for list_questions
func listQuestionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_questions",
		Description: "List the questions of a category, or the questions carrying a tag",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category_id": idProperty("Category identifier"),
				"tag": map[string]interface{}{
					"type":        "string",
					"description": "Tag name; used when category_id is absent",
				},
			},
		},
	}
}

// getQuestionTool returns the tool definition for get_question
func getQuestionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_question",
		Description: "Get a single question by identifier",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Question identifier"),
			},
			Required: []string{"id"},
		},
	}
}

// searchQuestionsTool returns the tool definition for search_questions
func searchQuestionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_questions",
		Description: "Search questions by case-insensitive substring with optional filters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Substring to match against title and content; empty matches all",
				},
				"category_id": idProperty("Only questions of this category"),
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Only questions of this difficulty",
					"enum":        difficultyEnum,
				},
				"tags": tagsProperty("Only questions carrying any of these tags"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     DefaultSearchLimit,
					"minimum":     1,
					"maximum":     MaxSearchLimit,
				},
			},
		},
	}
}

// createQuestionTool returns the tool definition for create_question
func createQuestionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_question",
		Description: "Create a question in an existing category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id":          idProperty("Optional explicit identifier (max 100 characters)"),
				"category_id": idProperty("Owning category identifier"),
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Question title (max 200 characters)",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Question body (max 5000 characters)",
				},
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Difficulty level",
					"enum":        difficultyEnum,
					"default":     "medium",
				},
				"tags": tagsProperty("Tag names (max 50 characters each)"),
			},
			Required: []string{"category_id", "title", "content"},
		},
	}
}

// updateQuestionTool returns the tool definition for update_question
func updateQuestionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_question",
		Description: "Update fields of a question. Supplying tags replaces the whole tag set.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id":          idProperty("Question identifier"),
				"category_id": idProperty("Move the question to this category"),
				"title": map[string]interface{}{
					"type":        "string",
					"description": "New title",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "New body",
				},
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "New difficulty level",
					"enum":        difficultyEnum,
				},
				"tags": tagsProperty("New tag set"),
			},
			Required: []string{"id"},
		},
	}
}

// deleteQuestionTool returns the tool definition for delete_question
func deleteQuestionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_question",
		Description: "Delete a question",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("Question identifier"),
			},
			Required: []string{"id"},
		},
	}
}

// listTagsTool returns the tool definition for list_tags
func listTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_tags",
		Description: "List every tag name in ascending order",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatisticsTool returns the tool definition for get_statistics
func getStatisticsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_statistics",
		Description: "Count categories, questions and tags, with the difficulty distribution",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// healthCheckTool returns the tool definition for health_check
func healthCheckTool() mcp.Tool {
	return mcp.Tool{
		Name:        "health_check",
		Description: "Report the health of the active storage backend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
