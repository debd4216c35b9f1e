package driven

import "context"

// GenerationRequest is a single text-generation call.
type GenerationRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// TokenUsage reports usage metrics from the remote provider, when present.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResult is the parsed response of a generation call. Attempts
// counts every issued call including the successful one, and is part of
// the observable contract.
type GenerationResult struct {
	Content  string
	Attempts int
	Usage    TokenUsage
}

// GenerationService is the retry-capable remote text-generation client.
// Calls are retried internally on transport failure, non-2xx status and
// timeout; exhausted retries surface as typed terminal errors.
type GenerationService interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)

	// Close releases underlying transport resources
	Close() error
}
