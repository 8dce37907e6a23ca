// Package domain defines the core business entities for licita.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A loaded PDF (reference file or document under audit)
//   - Chunk: A bounded slice of document text, the unit of retrieval
//   - IndexEntry: A chunk with its embedding and source
//   - AuditProtocol: The fixed checklist for a DocumentType
//   - AuditResult: The ordered (topic, verdict) report of one run
//   - IngestReport: The per-file outcome of a knowledge base build
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
