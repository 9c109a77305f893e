package mcp

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/questionbank/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "questionbank"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the storage contract as MCP tools
type Server struct {
	mcp    *server.MCPServer
	store  storage.Storage
	logger *zap.Logger
}

// NewServer creates an MCP server over store. The caller keeps ownership of
// store and closes it after Serve returns.
func NewServer(store storage.Storage, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:    mcpServer,
		store:  store,
		logger: logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", zap.String("server", ServerName))
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the MCP server over in and out. Cancelling ctx is a clean
// shutdown, not an error.
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Categories
	s.mcp.AddTool(listCategoriesTool(), s.handleListCategories)
	s.mcp.AddTool(getCategoryTool(), s.handleGetCategory)
	s.mcp.AddTool(createCategoryTool(), s.handleCreateCategory)
	s.mcp.AddTool(updateCategoryTool(), s.handleUpdateCategory)
	s.mcp.AddTool(deleteCategoryTool(), s.handleDeleteCategory)

	// Questions
	s.mcp.AddTool(listQuestionsTool(), s.handleListQuestions)
	s.mcp.AddTool(getQuestionTool(), s.handleGetQuestion)
	s.mcp.AddTool(searchQuestionsTool(), s.handleSearchQuestions)
	s.mcp.AddTool(createQuestionTool(), s.handleCreateQuestion)
	s.mcp.AddTool(updateQuestionTool(), s.handleUpdateQuestion)
	s.mcp.AddTool(deleteQuestionTool(), s.handleDeleteQuestion)

	// Tags, statistics, health
	s.mcp.AddTool(listTagsTool(), s.handleListTags)
	s.mcp.AddTool(getStatisticsTool(), s.handleGetStatistics)
	s.mcp.AddTool(healthCheckTool(), s.handleHealthCheck)
}
