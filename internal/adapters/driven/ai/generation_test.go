package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
)

func chatCompletion(content string) string {
	return `{
		"choices": [{"message": {"content": "` + content + `"}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
	}`
}

func newTestClient(t *testing.T, baseURL string, maxRetries int) *OpenAIGeneration {
	t.Helper()
	client, err := NewOpenAIGeneration(Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		RetryDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestNewOpenAIGenerationRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIGeneration(Config{})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
}

func TestGenerateSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Write([]byte(chatCompletion("a summary")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	result, err := client.Generate(context.Background(), driven.GenerationRequest{Prompt: "summarize"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "a summary" {
		t.Errorf("unexpected content: %q", result.Content)
	}
	if result.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Attempts)
	}
	if result.Usage.TotalTokens != 20 {
		t.Errorf("expected usage parsed, got %+v", result.Usage)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 HTTP call, got %d", calls.Load())
	}
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chatCompletion("recovered")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	result, err := client.Generate(context.Background(), driven.GenerationRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One failure then one success: attempts is part of the contract.
	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", result.Attempts)
	}
	if result.Content != "recovered" {
		t.Errorf("unexpected content: %q", result.Content)
	}
}

func TestGenerateExhaustsRetriesWithHTTPError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	_, err := client.Generate(context.Background(), driven.GenerationRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.Status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", httpErr.Status)
	}
	if httpErr.Attempts != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", httpErr.Attempts)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 HTTP calls, got %d", calls.Load())
	}
}

func TestGenerateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(chatCompletion("too late")))
	}))
	defer server.Close()

	client, err := NewOpenAIGeneration(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Timeout:    20 * time.Millisecond,
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Generate(context.Background(), driven.GenerationRequest{Prompt: "p"})
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if timeoutErr.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", timeoutErr.Attempts)
	}
}

func TestGenerateNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL, 1)
	_, err := client.Generate(context.Background(), driven.GenerationRequest{Prompt: "p"})

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
	if netErr.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", netErr.Attempts)
	}
}

func TestGenerateStopsRetryingOnCancelledContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewOpenAIGeneration(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Timeout:    time.Second,
		MaxRetries: 5,
		RetryDelay: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = client.Generate(ctx, driven.GenerationRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() >= 6 {
		t.Errorf("expected early stop after cancellation, got %d calls", calls.Load())
	}
}

func TestGenerateSendsSystemMessage(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(chatCompletion("ok")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Generate(context.Background(), driven.GenerationRequest{
		System: "you are terse",
		Prompt: "describe",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := string(gotBody)
	for _, want := range []string{`"role":"system"`, "you are terse", `"role":"user"`, "describe"} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %q: %s", want, body)
		}
	}
}
