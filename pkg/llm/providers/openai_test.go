package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	maestroerrors "github.com/agenticwork/maestro/pkg/errors"
	"github.com/agenticwork/maestro/pkg/llm"
)

func newTestChatClient(t *testing.T, handler http.HandlerFunc) *chatClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newChatClient("openai", server.URL, "test-key", 10*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewOpenAIProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider("")
	if err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestChatClient_Complete(t *testing.T) {
	var gotAuth string
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": "gpt-4o",
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": "Hello there"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 8, "completion_tokens": 3, "total_tokens": 11},
		})
	})

	resp, err := client.complete(context.Background(), llm.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected Authorization header: %q", gotAuth)
	}
	if resp.Content != "Hello there" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if resp.Usage.InputTokens != 8 || resp.Usage.OutputTokens != 3 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
	if resp.FinishReason != llm.FinishReasonStop {
		t.Errorf("unexpected finish reason: %q", resp.FinishReason)
	}
}

func TestChatClient_Complete_APIError(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"type": "invalid_request_error", "message": "bad key"},
		})
	})

	_, err := client.complete(context.Background(), llm.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "Hello"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var provErr *maestroerrors.ProviderError
	if !maestroerrors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", provErr.StatusCode)
	}
	if provErr.IsRetryable() {
		t.Error("401 should not be retryable")
	}
}

func TestChatClient_Stream(t *testing.T) {
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("expected stream=true in request")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"id":"chatcmpl-1","choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"id":"chatcmpl-1","choices":[{"delta":{"content":"lo"}}]}`,
			`data: {"id":"chatcmpl-1","choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2}}`,
			`data: [DONE]`,
		}
		for _, line := range lines {
			w.Write([]byte(line + "\n\n"))
		}
	})

	chunks, err := client.stream(context.Background(), llm.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "Hello"}},
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var content string
	var usage *llm.TokenUsage
	var finish llm.FinishReason
	for chunk := range chunks {
		if chunk.Error != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Error)
		}
		content += chunk.Delta.Content
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}

	if content != "Hello" {
		t.Errorf("expected content %q, got %q", "Hello", content)
	}
	if finish != llm.FinishReasonStop {
		t.Errorf("expected stop finish reason, got %q", finish)
	}
	if usage == nil || usage.InputTokens != 5 || usage.OutputTokens != 2 {
		t.Errorf("unexpected usage: %+v", usage)
	}
}

func TestChatClient_RetriesTransient5xx(t *testing.T) {
	var attempts int32
	client := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-2",
			"model": "gpt-4o",
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": "ok"},
					"finish_reason": "stop",
				},
			},
		})
	})

	resp, err := client.complete(context.Background(), llm.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
}

func TestOpenAIProvider_Capabilities(t *testing.T) {
	provider := &OpenAIProvider{}
	caps := provider.Capabilities()
	if !caps.Streaming || !caps.Tools {
		t.Errorf("unexpected capabilities: %+v", caps)
	}
	if llm.GetModelByTier(caps.Models, llm.ModelTierEconomy) == nil {
		t.Error("expected an economy-tier model")
	}
}
