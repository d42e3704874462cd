package llm

import "context"

// Request is one chat completion. A nil Temperature or zero MaxTokens lets the
// provider client apply its defaults.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    int
	JSONMode     bool
}

// Response is the first choice of a completion plus the provider's usage counts.
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Tokens returns the usage reported by the provider, or an estimate when it reported none.
func (r Response) Tokens(prompt string) int {
	if n := r.PromptTokens + r.CompletionTokens; n > 0 {
		return n
	}
	return EstimateTokens(prompt) + EstimateTokens(r.Text)
}

// Gateway is the provider-agnostic LLM port used by the pipeline stages.
type Gateway interface {
	Call(ctx context.Context, req Request) (Response, error)
	Model() string
}

// Temperature is a helper for building Requests.
func Temperature(v float64) *float64 {
	return &v
}
