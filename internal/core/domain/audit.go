package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// FinalSummaryTopic labels the executive summary entry appended after the protocol.
const FinalSummaryTopic = "🏁 CONCLUSÃO FINAL DO AUDITOR"

// VerdictClass is the classification token a verdict starts with.
type VerdictClass string

// Verdict classifications.
const (
	// VerdictIrregular flags a restrictive or illegal clause.
	VerdictIrregular VerdictClass = "irregular"

	// VerdictCaveat flags partial compliance or missing detail.
	VerdictCaveat VerdictClass = "caveat"

	// VerdictCompliant means no irregularity was found.
	VerdictCompliant VerdictClass = "compliant"

	// VerdictUnclassified is the fallback when no marker leads the text.
	VerdictUnclassified VerdictClass = "unclassified"
)

// Marker returns the token the model is asked to emit for the class.
func (c VerdictClass) Marker() string {
	for _, m := range verdictMarkers {
		if m.class == c {
			return m.emoji + " " + m.keyword
		}
	}
	return ""
}

// String returns the string representation.
func (c VerdictClass) String() string {
	return string(c)
}

const variationSelector = "\ufe0f"

type verdictMarker struct {
	class   VerdictClass
	emoji   string
	keyword string
}

var verdictMarkers = []verdictMarker{
	{class: VerdictIrregular, emoji: "🚨", keyword: "ALERTA VERMELHO"},
	{class: VerdictCaveat, emoji: "\u26a0" + variationSelector, keyword: "RESSALVA"},
	{class: VerdictCompliant, emoji: "✅", keyword: "CONFORME"},
}

// VerdictMarkers returns the marker tokens in the order they are offered to the model.
func VerdictMarkers() []string {
	markers := make([]string, len(verdictMarkers))
	for i, m := range verdictMarkers {
		markers[i] = m.emoji + " " + m.keyword
	}
	return markers
}

// ParseVerdict reads the leading classification token of a verdict.
// Only a marker at the very start counts; a keyword appearing later in the
// text (or "NÃO CONFORME") yields VerdictUnclassified.
func ParseVerdict(text string) VerdictClass {
	s := strings.TrimLeft(strings.TrimSpace(text), "*#> ")

	for _, m := range verdictMarkers {
		// Models sometimes drop the variation selector from the emoji.
		rest := strings.TrimPrefix(s, strings.TrimSuffix(m.emoji, variationSelector))
		rest = strings.TrimLeft(rest, variationSelector+" *")

		if len(rest) < len(m.keyword) || !strings.EqualFold(rest[:len(m.keyword)], m.keyword) {
			continue
		}
		if next, _ := utf8.DecodeRuneInString(rest[len(m.keyword):]); next == utf8.RuneError || isMarkerBoundary(next) {
			return m.class
		}
	}
	return VerdictUnclassified
}

func isMarkerBoundary(r rune) bool {
	switch r {
	case ':', ' ', '*', '-', '.', '\n', '\t', '!':
		return true
	default:
		return false
	}
}

// AuditEntry is one (topic, verdict) pair of a report.
type AuditEntry struct {
	// Topic is the protocol label.
	Topic string

	// Query is the focus query that drove retrieval.
	Query string

	// Verdict is the generated text, or a diagnostic when Failure is set.
	Verdict string

	// Class is parsed from the verdict's leading marker.
	Class VerdictClass

	// Sources lists the cited reference files, in retrieval rank order.
	Sources []string

	// Attempts is the number of generation calls made for this topic.
	Attempts int

	// Failure is KindNone for a normal verdict.
	Failure ErrorKind
}

// IsDiagnostic reports whether the entry carries a failure message instead of a verdict.
func (e AuditEntry) IsDiagnostic() bool {
	return e.Failure != KindNone
}

// AuditResult is the ordered report of one audit run. Not persisted.
type AuditResult struct {
	// RunID identifies the run in logs.
	RunID string

	// DocumentName is the uploaded file name.
	DocumentName string

	// DocumentType selects the protocol that was applied.
	DocumentType DocumentType

	// Entries follow protocol order, optionally followed by the final summary.
	Entries []AuditEntry

	// Degraded is set when the audit ran without a knowledge base.
	Degraded bool

	// Truncated is set when the document text was cut to fit the prompt budget.
	Truncated bool

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Count returns how many entries carry the given class.
func (r *AuditResult) Count(class VerdictClass) int {
	n := 0
	for i := range r.Entries {
		if !r.Entries[i].IsDiagnostic() && r.Entries[i].Class == class {
			n++
		}
	}
	return n
}

// Failures returns how many entries are diagnostics.
func (r *AuditResult) Failures() int {
	n := 0
	for i := range r.Entries {
		if r.Entries[i].IsDiagnostic() {
			n++
		}
	}
	return n
}
