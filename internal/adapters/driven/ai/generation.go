package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// Ensure OpenAIGeneration implements GenerationService
var _ driven.GenerationService = (*OpenAIGeneration)(nil)

// Config holds generation client configuration.
type Config struct {
	// APIKey is required; construction fails without it
	APIKey string

	// Model defaults to gpt-4o-mini
	Model string

	// BaseURL defaults to the OpenAI API
	BaseURL string

	// Timeout is the per-attempt deadline
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first
	MaxRetries int

	// RetryDelay is the constant wait between attempts
	RetryDelay time.Duration
}

// DefaultConfig returns sensible defaults for an API key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		Model:      "gpt-4o-mini",
		BaseURL:    "https://api.openai.com/v1",
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 1 * time.Second,
	}
}

// OpenAIGeneration implements GenerationService against an OpenAI-style
// chat completions API. Each call gets a per-attempt deadline; transport
// failures, non-2xx responses and timeouts are retried with a constant
// delay, then surfaced as typed terminal errors.
type OpenAIGeneration struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
}

// NewOpenAIGeneration creates a new generation client.
// It fails fast, without attempting any call, when the API key is absent.
func NewOpenAIGeneration(cfg Config) (*OpenAIGeneration, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: generation API key", domain.ErrMissingCredential)
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	return &OpenAIGeneration{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     &http.Client{},
	}, nil
}

// chatMessage is one message in a chat completions request
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the chat completions API
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// chatResponse is the response from the chat completions API
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage driven.TokenUsage `json:"usage"`
}

// Generate issues the call with retries. The returned result reports the
// number of attempts used, including the successful one.
func (g *OpenAIGeneration) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:     g.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	attempts := 0
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(g.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
		}

		attempts++
		result, err := g.doAttempt(ctx, body)
		if err == nil {
			result.Attempts = attempts
			return result, nil
		}
		lastErr = stampAttempts(err, attempts)

		// The caller cancelled; retrying cannot help.
		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// doAttempt issues a single call under the per-attempt deadline.
func (g *OpenAIGeneration) doAttempt(ctx context.Context, body []byte) (*driven.GenerationResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{}
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{Status: resp.StatusCode}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &NetworkError{Err: errors.New("response contains no choices")}
	}

	return &driven.GenerationResult{
		Content: parsed.Choices[0].Message.Content,
		Usage:   parsed.Usage,
	}, nil
}

// Close releases transport resources.
func (g *OpenAIGeneration) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// stampAttempts records the attempt count on a typed error.
func stampAttempts(err error, attempts int) error {
	switch e := err.(type) {
	case *TimeoutError:
		e.Attempts = attempts
	case *HTTPError:
		e.Attempts = attempts
	case *NetworkError:
		e.Attempts = attempts
	}
	return err
}
