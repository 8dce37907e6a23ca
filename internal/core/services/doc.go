// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services never import adapters; vector indexes, stores and AI
// providers are injected through the ports in core/ports/driven.
package services
