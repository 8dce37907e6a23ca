package mcp

import (
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Audit runs documents through their protocol.
	Audit driving.AuditService

	// KnowledgeBase searches and describes the reference library.
	KnowledgeBase driving.KnowledgeBaseService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.KnowledgeBase == nil {
		return ErrMissingKnowledgeBaseService
	}
	if p.Audit == nil {
		return ErrMissingAuditService
	}
	return nil
}
