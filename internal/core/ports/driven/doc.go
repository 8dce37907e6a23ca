// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - LLMService: Generates verdicts
//   - VectorIndex: Similarity search over the embedded knowledge base
//   - SnapshotStore: Persists and restores a built index
//   - Normaliser / NormaliserRegistry: Extract text from PDFs and plain files
//   - PostProcessorPipeline: Split and tag extracted text
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PromptStore: Without it, the built-in prompts are used.
//   - TokenCounter: Without it, prompts are bounded by character count only.
//   - FileWatcher: Only used by the knowledge base watch command.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
