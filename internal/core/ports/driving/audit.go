package driving

import (
	"context"

	"github.com/aguiargov/licita/internal/core/domain"
)

// AuditService runs a document through the protocol for its type.
type AuditService interface {
	// RunAudit produces the ordered report for one document.
	//
	// An unreadable document yields a single diagnostic entry and no remote
	// calls. Errors are reserved for an invalid document type, an unavailable
	// knowledge base under the refuse policy, and cancellation before start.
	RunAudit(ctx context.Context, req AuditRequest) (*domain.AuditResult, error)
}

// AuditRequest describes one audit run.
type AuditRequest struct {
	// DocumentName is the uploaded file name, used in the report and for format detection.
	DocumentName string

	// Data is the raw document bytes.
	Data []byte

	// DocumentType selects the protocol.
	DocumentType domain.DocumentType

	// K overrides the retrieval depth for every topic. Zero keeps protocol defaults.
	K int

	// SkipSummary omits the final executive summary entry.
	SkipSummary bool

	// OnTopic is called before and after each topic. May be nil.
	OnTopic func(AuditProgress)
}

// AuditProgress reports the state of a run between topics.
type AuditProgress struct {
	// Index is the zero-based topic position.
	Index int

	// Total is the number of topics, including the final summary when enabled.
	Total int

	// Topic is the topic label.
	Topic string

	// Entry is nil when the topic starts and set when it finishes.
	Entry *domain.AuditEntry
}

// Done reports whether the event marks a finished topic.
func (p AuditProgress) Done() bool {
	return p.Entry != nil
}
