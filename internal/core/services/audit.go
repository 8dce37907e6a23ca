package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
	"github.com/aguiargov/licita/internal/logger"
)

// Ensure AuditService implements the interface.
var _ driving.AuditService = (*AuditService)(nil)

// ReadTopic labels the diagnostic entry of an unreadable document.
const ReadTopic = "Leitura do documento"

// KnowledgeBaseProvider supplies the built knowledge base.
type KnowledgeBaseProvider interface {
	GetOrBuild(ctx context.Context) (*KnowledgeBase, error)
}

// AuditService runs documents through their audit protocol.
type AuditService struct {
	loader    *DocumentLoader
	kbs       KnowledgeBaseProvider
	generator *VerdictGenerator
	policy    RetryPolicy
	settings  domain.AuditSettings
}

// NewAuditService creates an audit service.
func NewAuditService(
	loader *DocumentLoader,
	kbs KnowledgeBaseProvider,
	generator *VerdictGenerator,
	settings domain.AuditSettings,
) *AuditService {
	if !settings.EmptyKnowledgeBase.IsValid() {
		settings.EmptyKnowledgeBase = domain.PolicyRefuse
	}
	return &AuditService{
		loader:    loader,
		kbs:       kbs,
		generator: generator,
		policy:    RetryPolicyFromSettings(settings),
		settings:  settings,
	}
}

// SetRetryPolicy replaces the retry policy (tests inject a fake sleep).
func (s *AuditService) SetRetryPolicy(policy RetryPolicy) {
	s.policy = policy
}

// RunAudit produces the ordered report for one document.
func (s *AuditService) RunAudit(ctx context.Context, req driving.AuditRequest) (*domain.AuditResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	protocol, err := domain.ProtocolFor(req.DocumentType)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	result := &domain.AuditResult{
		RunID:        runID,
		DocumentName: req.DocumentName,
		DocumentType: req.DocumentType,
		StartedAt:    time.Now(),
	}
	defer func() { result.FinishedAt = time.Now() }()

	log.Infow("audit started", "document", req.DocumentName, "type", req.DocumentType, "topics", protocol.Len())

	doc, err := s.loader.Load(ctx, req.DocumentName, req.Data)
	if err != nil {
		if !errors.Is(err, domain.ErrUnreadableSource) {
			return nil, err
		}
		log.Warnw("document unreadable", "error", err)
		result.Entries = []domain.AuditEntry{diagnosticEntry(ReadTopic, "", err, 0)}
		return result, nil
	}

	var retriever *Retriever
	kb, err := s.kbs.GetOrBuild(ctx)
	switch {
	case err == nil:
		retriever = NewRetriever(kb, s.settings.RetrievalK)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case s.settings.EmptyKnowledgeBase == domain.PolicyDegraded:
		log.Warnw("auditing without legal context", "error", err)
		result.Degraded = true
	default:
		return nil, fmt.Errorf("audit %s: %w", req.DocumentName, err)
	}

	summarise := s.settings.FinalSummary && !req.SkipSummary
	total := protocol.Len()
	if summarise {
		total++
	}

	invoker := NewResilientInvoker(s.policy)

	for i, topic := range protocol.Entries {
		notify(req.OnTopic, driving.AuditProgress{Index: i, Total: total, Topic: topic.Topic})

		k := topic.K
		if req.K > 0 {
			k = req.K
		}
		entry := s.auditTopic(ctx, invoker, retriever, doc.Content, req.DocumentType, topic, k, result)
		result.Entries = append(result.Entries, entry)

		log.Infow("topic finished", "topic", topic.Topic, "class", entry.Class, "attempts", entry.Attempts,
			"failure", entry.Failure)
		notify(req.OnTopic, driving.AuditProgress{Index: i, Total: total, Topic: topic.Topic, Entry: &entry})
	}

	if summarise {
		if result.Failures() == len(result.Entries) {
			log.Warnw("skipping final summary, every topic failed")
		} else {
			index := len(result.Entries)
			notify(req.OnTopic, driving.AuditProgress{Index: index, Total: total, Topic: domain.FinalSummaryTopic})
			entry := s.summarise(ctx, invoker, req.DocumentType, result.Entries)
			result.Entries = append(result.Entries, entry)
			notify(req.OnTopic, driving.AuditProgress{
				Index: index, Total: total, Topic: domain.FinalSummaryTopic, Entry: &entry,
			})
		}
	}

	log.Infow("audit finished",
		"irregular", result.Count(domain.VerdictIrregular),
		"caveats", result.Count(domain.VerdictCaveat),
		"failures", result.Failures())
	return result, nil
}

func (s *AuditService) auditTopic(
	ctx context.Context,
	invoker *ResilientInvoker,
	retriever *Retriever,
	text string,
	docType domain.DocumentType,
	topic domain.ProtocolEntry,
	k int,
	result *domain.AuditResult,
) domain.AuditEntry {
	var passages []domain.Passage
	if retriever != nil {
		// The query embedding shares the provider's rate limit with generation.
		retrieval := invoker.Invoke(ctx, func(ctx context.Context) (string, error) {
			var err error
			passages, err = retriever.Retrieve(ctx, topic.Query, k)
			return "", err
		})
		if !retrieval.Succeeded() {
			logger.FromContext(ctx).Warnw("retrieval failed", "topic", topic.Topic,
				"attempts", retrieval.Attempts, "error", retrieval.Err)
			return diagnosticEntry(topic.Topic, topic.Query, retrieval.Err, retrieval.Attempts)
		}
	}

	prompt, err := s.generator.Prepare(VerdictRequest{
		DocumentType: docType,
		DocumentText: text,
		Topic:        topic.Topic,
		FocusQuery:   topic.Query,
		Passages:     passages,
	})
	if err != nil {
		return diagnosticEntry(topic.Topic, topic.Query, err, 0)
	}
	if prompt.Truncated {
		result.Truncated = true
	}

	outcome := invoker.Invoke(ctx, func(ctx context.Context) (string, error) {
		return s.generator.Send(ctx, prompt)
	})
	if !outcome.Succeeded() {
		return diagnosticEntry(topic.Topic, topic.Query, outcome.Err, outcome.Attempts)
	}

	return domain.AuditEntry{
		Topic:    topic.Topic,
		Query:    topic.Query,
		Verdict:  outcome.Text,
		Class:    domain.ParseVerdict(outcome.Text),
		Sources:  Sources(prompt.Passages),
		Attempts: outcome.Attempts,
	}
}

func (s *AuditService) summarise(
	ctx context.Context, invoker *ResilientInvoker, docType domain.DocumentType, entries []domain.AuditEntry,
) domain.AuditEntry {
	prompt, err := s.generator.PrepareSummary(docType, entries)
	if err != nil {
		return diagnosticEntry(domain.FinalSummaryTopic, "", err, 0)
	}

	outcome := invoker.Invoke(ctx, func(ctx context.Context) (string, error) {
		return s.generator.Send(ctx, prompt)
	})
	if !outcome.Succeeded() {
		return diagnosticEntry(domain.FinalSummaryTopic, "", outcome.Err, outcome.Attempts)
	}

	return domain.AuditEntry{
		Topic:    domain.FinalSummaryTopic,
		Verdict:  outcome.Text,
		Class:    domain.ParseVerdict(outcome.Text),
		Attempts: outcome.Attempts,
	}
}

func diagnosticEntry(topic, query string, err error, attempts int) domain.AuditEntry {
	kind := domain.Classify(err)
	if kind == domain.KindNone {
		kind = domain.KindInternal
	}
	return domain.AuditEntry{
		Topic:    topic,
		Query:    query,
		Verdict:  domain.UserMessage(err),
		Class:    domain.VerdictUnclassified,
		Attempts: attempts,
		Failure:  kind,
	}
}

func notify(fn func(driving.AuditProgress), p driving.AuditProgress) {
	if fn != nil {
		fn(p)
	}
}
