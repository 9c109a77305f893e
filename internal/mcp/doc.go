// Package mcp exposes the question bank over the Model Context Protocol.
//
// The server speaks JSON-RPC 2.0 on stdio and registers one tool per storage
// operation:
//
//   - list_categories, get_category, create_category, update_category, delete_category
//   - list_questions, get_question, search_questions, create_question,
//     update_question, delete_question
//   - list_tags, get_statistics, health_check
//
// Every tool answers with an indented JSON text payload. Storage errors are
// mapped onto MCP error codes by kind:
//
//   - -32602: invalid params, including VALIDATION errors
//   - -32603: internal error
//   - -32001: NOT_FOUND
//   - -32002: DUPLICATE_ID
//   - -32003: HAS_DEPENDENTS
//   - -32004: BACKEND_UNAVAILABLE
//
// Logs go to stderr; stdout is reserved for the protocol.
package mcp
