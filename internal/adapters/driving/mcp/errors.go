// Package mcp provides an MCP (Model Context Protocol) server adapter for licita.
// It lets AI assistants audit procurement documents and query the legal
// knowledge base.
package mcp

import "errors"

// ErrMissingKnowledgeBaseService is returned when the knowledge base service is not provided.
var ErrMissingKnowledgeBaseService = errors.New("mcp: knowledge base service is required")

// ErrMissingAuditService is returned when the audit service is not provided.
var ErrMissingAuditService = errors.New("mcp: audit service is required")
