// Package memory provides in-memory implementations of driven ports.
// The vector index backs every knowledge base at runtime; the stores
// are used in tests.
package memory
