// Package llm provides the optional language-model layer used by the
// narrative route. The deterministic pipeline never depends on it; when no
// provider is configured the narrative route answers from retrieved text
// alone.
package llm

import (
	"context"
	"errors"
)

// Provider names for configuration.
const (
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Common errors returned by providers.
var (
	ErrProviderDown  = errors.New("llm: provider unavailable")
	ErrNotConfigured = errors.New("llm: no provider configured")
)

// Provider is a minimal completion backend. Narrative answering only needs
// single-turn prompting; tool calls and streaming are out of scope here.
type Provider interface {
	// Name returns the provider identifier (e.g., "ollama").
	Name() string

	// Complete sends a prompt and returns the model's full reply.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// NoopProvider satisfies Provider when narrative generation is disabled.
// Complete always returns ErrNotConfigured, which callers treat as "fall
// back to extractive answering".
type NoopProvider struct{}

func (NoopProvider) Name() string { return ProviderNone }

func (NoopProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	return "", ErrNotConfigured
}

func (NoopProvider) Ping(ctx context.Context) error { return nil }
