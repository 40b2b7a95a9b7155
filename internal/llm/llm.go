// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides text-completion backends for the generation pipeline.
// Every backend exposes the single Complete capability and normalizes its
// API's response shape to plain text at this boundary; callers never branch
// on shape. Backend selection is a construction-time choice, invisible to
// the pipeline.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/goal-engine/pkg/types"
)

// ErrMissingAPIKey is returned at construction when a hosted backend is
// selected without credentials. The caller must not fall back to a degraded
// mode without opting in explicitly.
var ErrMissingAPIKey = errors.New("completion API key required: set openai-api-key in .secrets/ or completion.api_key in config")

// Backend is a ready-to-call completion service handle.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New selects and constructs a completion backend from configuration. An
// unset provider defaults to OpenAI.
func New(cfg types.CompletionConfig) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		return NewOpenAIBackend(cfg)
	case types.ProviderOllama:
		return NewOllamaBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q: use openai or ollama", cfg.Provider)
	}
}
