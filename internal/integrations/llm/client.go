// Package llm provides the concrete LLM and embedding backends behind the
// engine's Completer and Embedder interfaces: Anthropic or OpenAI for
// completions, OpenAI or a local hashed model for embeddings.
package llm

import (
	"fmt"
	"time"

	"triagebot/internal/engine/llmclass"
	"triagebot/internal/engine/similar"
)

// NewCompleter builds the completion backend for the configured provider.
func NewCompleter(provider, anthropicKey, openAIKey, model string, timeout time.Duration) (llmclass.Completer, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicCompleter(anthropicKey, model, timeout), nil
	case "openai":
		return NewOpenAICompleter(openAIKey, model, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}

// NewEmbedder builds the embedding backend. An empty OpenAI key selects the
// local hashed embedder so similarity search still works offline.
func NewEmbedder(openAIKey, model string, dimensions int, timeout time.Duration) similar.Embedder {
	if openAIKey == "" {
		return NewLocalEmbedder(dimensions)
	}
	return NewOpenAIEmbedder(openAIKey, model, timeout)
}
