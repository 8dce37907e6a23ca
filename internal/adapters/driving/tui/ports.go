// Package tui provides an interactive terminal user interface for licita.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Audit runs the document through its protocol.
	Audit driving.AuditService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Audit == nil {
		return ErrMissingAuditService
	}
	return nil
}
