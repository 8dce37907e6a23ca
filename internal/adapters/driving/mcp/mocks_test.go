package mcp

import (
	"context"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

// mockAuditService is a mock implementation of driving.AuditService.
type mockAuditService struct {
	result *domain.AuditResult
	err    error
	last   driving.AuditRequest
}

func (m *mockAuditService) RunAudit(_ context.Context, req driving.AuditRequest) (*domain.AuditResult, error) {
	m.last = req
	return m.result, m.err
}

// mockKnowledgeBaseService is a mock implementation of driving.KnowledgeBaseService.
type mockKnowledgeBaseService struct {
	passages []domain.Passage
	status   *driving.KnowledgeBaseStatus
	err      error
	lastK    int
}

func (m *mockKnowledgeBaseService) Build(_ context.Context, _ bool) (*domain.IngestReport, error) {
	if m.status != nil && m.status.Report != nil {
		return m.status.Report, m.err
	}
	return &domain.IngestReport{}, m.err
}

func (m *mockKnowledgeBaseService) Search(_ context.Context, _ string, k int) ([]domain.Passage, error) {
	m.lastK = k
	return m.passages, m.err
}

func (m *mockKnowledgeBaseService) Status(_ context.Context) (*driving.KnowledgeBaseStatus, error) {
	return m.status, m.err
}

func (m *mockKnowledgeBaseService) Invalidate() {}

func validPorts() *Ports {
	return &Ports{
		Audit:         &mockAuditService{},
		KnowledgeBase: &mockKnowledgeBaseService{},
	}
}
