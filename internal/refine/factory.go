package refine

import (
	"context"
	"os"
	"time"

	"github.com/abelbrown/decoder/internal/logging"
)

// NewBackend picks a backend from the environment: OpenAI when
// OPENAI_API_KEY is set, else a reachable Ollama. Returns nil when neither
// is usable.
func NewBackend(ctx context.Context) Backend {
	model := os.Getenv("DECODER_MODEL")

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		b := NewOpenAI(key, model)
		logging.Info("Model backend initialized", "backend", "openai", "model", b.model)
		return b
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	o := NewOllama(os.Getenv("OLLAMA_HOST"), model)
	if o.Available(ctx) {
		logging.Info("Model backend initialized", "backend", "ollama", "model", o.model)
		return o
	}

	logging.Warn("No model backend available")
	return nil
}

// NewBackendWithConfig creates a backend by provider name without probing
// it. Unknown providers return nil.
func NewBackendWithConfig(provider, endpoint, model, apiKey string) Backend {
	switch provider {
	case "openai", "":
		return NewOpenAI(apiKey, model)
	case "ollama":
		return NewOllama(endpoint, model)
	default:
		logging.Warn("Unknown model backend", "backend", provider)
		return nil
	}
}
