package domain

import "time"

// Document is one loaded file: a reference PDF from the knowledge base
// directory or the uploaded document under audit.
// Reference documents are discarded once chunked.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path or upload name).
	URI string

	// Title is the file name used for citations (e.g. "lei.pdf").
	Title string

	// Content is the full extracted text before chunking.
	Content string

	// Pages is the number of pages that yielded text.
	Pages int

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// LoadedAt is when the text was extracted.
	LoadedAt time.Time
}

// Chunk is a bounded slice of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	// ID is deterministic for a given source, position and content.
	ID string

	// DocumentID links back to the originating Document (not ownership).
	DocumentID string

	// Source is the originating file name, used for citations.
	Source string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// IndexEntry is one (chunk text, embedding, source) record of a vector index.
// Duplicates are allowed; insertion order is irrelevant to correctness.
type IndexEntry struct {
	// ChunkID identifies the chunk.
	ChunkID string

	// Source is the originating file name.
	Source string

	// Content is the chunk text.
	Content string

	// Embedding is the fixed-dimension vector for Content. Immutable once created.
	Embedding []float32
}

// Passage is a retrieved context passage, tagged with its source.
type Passage struct {
	// Content is the chunk text.
	Content string

	// Source is the originating file name.
	Source string

	// Score is the cosine similarity to the query.
	Score float64
}
