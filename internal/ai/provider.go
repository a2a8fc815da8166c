// Package ai unifies the two text-generation backends behind one contract.
// Exactly one provider is active per process; selection happens at startup and
// there is no fallback from one backend to the other.
package ai

import "context"

// Result carries the generated reply plus best-effort token accounting.
// A nil counter means the backend did not report that number.
type Result struct {
	Text             string
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
}

// Provider generates a reply for a prompt, optionally conditioned by a
// persona. An empty persona means none. Transport failures, undecodable
// bodies, backend error payloads and replies without text all surface as a
// non-nil error; missing token counts never do.
type Provider interface {
	Generate(ctx context.Context, prompt, persona string) (*Result, error)
	Name() string
	ModelName() string
}
