// Package llm defines the oracle abstraction the classifier calls.
// Providers handle API communication with an LLM service and nothing
// else; validation and fallback behavior live with the caller.
package llm

import "context"

// Provider is a minimal completion interface over an LLM service.
type Provider interface {
	// Complete sends a system and user prompt and returns the full
	// response text. Implementations must honor ctx cancellation.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Model returns the model name in use, for logging.
	Model() string
}
