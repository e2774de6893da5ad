// Package providers defines the single-shot model invocation interface used
// by the evaluation engine. Implementations live in the subpackages bedrock,
// openai, and gemini.
package providers

import "context"

// Request is one prompt sent to a model under evaluation.
type Request struct {
	// Model overrides the provider's configured model when set.
	Model string
	// System is an optional system prompt.
	System string
	// Prompt is the user message.
	Prompt string
	// MaxTokens caps the response length. Zero means the provider default.
	MaxTokens int
	// Temperature in [0,1]. Evaluation runs keep this low so repeated runs
	// score comparably.
	Temperature float64
}

// Result is a completed model invocation.
type Result struct {
	// Text is the response content.
	Text string
	// InputTokens and OutputTokens hold the usage reported by the backend,
	// zero when the backend reports none.
	InputTokens  int
	OutputTokens int
	// StopReason is the backend's reason for ending the response.
	StopReason string
}

// Provider invokes a model once per evaluation sample.
type Provider interface {
	// Name identifies the provider in reports: "bedrock", "openai", "gemini".
	Name() string
	// Invoke sends one prompt and waits for the complete response.
	Invoke(ctx context.Context, req Request) (*Result, error)
}
