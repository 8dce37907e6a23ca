// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/aguiargov/licita/internal/core/domain"
)

// TopicStarted is sent when the auditor begins a topic.
type TopicStarted struct {
	Index int
	Total int
	Topic string
}

// TopicFinished carries the entry produced for a topic.
type TopicFinished struct {
	Index int
	Total int
	Entry domain.AuditEntry
}

// AuditCompleted carries the final report, or the error that stopped the run.
type AuditCompleted struct {
	Result *domain.AuditResult
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewProgress shows topics as they are audited.
	ViewProgress ViewType = iota
	// ViewReport is the scrollable final report.
	ViewReport
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewProgress:
		return "progress"
	case ViewReport:
		return "report"
	default:
		return "unknown"
	}
}

// Fraction returns the completed share of the run in [0, 1].
func (m TopicFinished) Fraction() float64 {
	if m.Total <= 0 {
		return 0
	}
	return float64(m.Index+1) / float64(m.Total)
}
