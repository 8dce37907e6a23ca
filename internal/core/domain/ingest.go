package domain

import (
	"fmt"
	"time"
)

// UnavailableReason tells operators why a knowledge base could not be built.
type UnavailableReason string

// Unavailability reasons. Each maps to a different operator action.
const (
	// ReasonDirectoryMissing means the reference directory does not exist.
	ReasonDirectoryMissing UnavailableReason = "directory_missing"

	// ReasonNoPDFs means the directory tree holds no PDF files.
	ReasonNoPDFs UnavailableReason = "no_pdfs"

	// ReasonPDFsUnreadable means PDFs exist but none yielded text.
	ReasonPDFsUnreadable UnavailableReason = "pdfs_unreadable"

	// ReasonNoUsableChunks means text was extracted but every chunk was filtered out.
	ReasonNoUsableChunks UnavailableReason = "no_usable_chunks"
)

// Description returns a human-readable description of the reason.
func (r UnavailableReason) Description() string {
	switch r {
	case ReasonDirectoryMissing:
		return "a pasta de referência não foi encontrada"
	case ReasonNoPDFs:
		return "nenhum PDF foi encontrado na pasta de referência"
	case ReasonPDFsUnreadable:
		return "nenhum PDF de referência pôde ser lido (escaneados ou corrompidos)"
	case ReasonNoUsableChunks:
		return "o texto extraído ficou vazio após o processamento"
	default:
		return unknownDescription
	}
}

// UnavailableError reports an empty knowledge base with its diagnostic reason.
type UnavailableError struct {
	// Reason is the diagnostic class.
	Reason UnavailableReason

	// Detail names the directory or files involved.
	Detail string
}

// Error implements error.
func (e *UnavailableError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("knowledge base unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("knowledge base unavailable: %s (%s)", e.Reason, e.Detail)
}

// Unwrap lets errors.Is(err, ErrEmptyKnowledgeBase) match.
func (e *UnavailableError) Unwrap() error {
	return ErrEmptyKnowledgeBase
}

// IngestedFile is a reference file that yielded text.
type IngestedFile struct {
	// Path is the file path relative to the knowledge base root.
	Path string

	// Chars is the number of extracted characters.
	Chars int

	// Pages is the number of pages that yielded text.
	Pages int

	// Chunks is the number of chunks kept after filtering.
	Chunks int
}

// SkippedFile is a reference file that was not ingested.
type SkippedFile struct {
	// Path is the file path relative to the knowledge base root.
	Path string

	// Reason explains why the file was skipped.
	Reason string
}

// IngestReport summarises one knowledge base build.
type IngestReport struct {
	// Root is the scanned directory.
	Root string

	// Files lists ingested reference files.
	Files []IngestedFile

	// Skipped lists files that failed to load, with reasons.
	Skipped []SkippedFile

	// Chunks is the number of chunks embedded.
	Chunks int

	// Filtered is the number of chunks dropped as empty or too short.
	Filtered int

	// FromSnapshot is set when the index was loaded instead of built.
	FromSnapshot bool

	// EmbeddingModel is the model the index was built with.
	EmbeddingModel string

	// BuiltAt is when the index was built (or the snapshot was written).
	BuiltAt time.Time

	// Duration is how long the build or load took.
	Duration time.Duration
}

// Processed returns the number of ingested files.
func (r *IngestReport) Processed() int {
	return len(r.Files)
}
