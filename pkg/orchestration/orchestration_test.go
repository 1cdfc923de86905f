package orchestration

import (
	"context"
	"sync"

	"github.com/agenticwork/maestro/pkg/llm"
)

// mockDispatcher records every completion request and delegates to a
// per-test handler.
type mockDispatcher struct {
	mu      sync.Mutex
	calls   []llm.CompletionRequest
	hints   []string
	handler func(ctx context.Context, req llm.CompletionRequest, hint string) (*llm.CompletionResult, error)
}

func (d *mockDispatcher) CreateCompletion(ctx context.Context, req llm.CompletionRequest, hint string) (*llm.CompletionResult, error) {
	d.mu.Lock()
	d.calls = append(d.calls, req)
	d.hints = append(d.hints, hint)
	d.mu.Unlock()
	return d.handler(ctx, req, hint)
}

func (d *mockDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// syncResult wraps a plain text response in the non-streaming result shape.
func syncResult(model, content string, usage llm.TokenUsage) *llm.CompletionResult {
	return &llm.CompletionResult{
		Response: &llm.CompletionResponse{
			Content:      content,
			FinishReason: llm.FinishReasonStop,
			Usage:        usage,
			Model:        model,
			Provider:     "mock",
		},
		Provider: "mock",
	}
}

// streamResult delivers the given chunks over a closed channel.
func streamResult(chunks ...llm.StreamChunk) *llm.CompletionResult {
	ch := make(chan llm.StreamChunk, len(chunks))
	for _, chunk := range chunks {
		ch <- chunk
	}
	close(ch)
	return &llm.CompletionResult{Chunks: ch, Provider: "mock"}
}

// eventRecorder captures emitted lifecycle events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name    string
	payload map[string]interface{}
}

func (r *eventRecorder) emit(event string, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: event, payload: payload})
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, event := range r.events {
		names[i] = event.name
	}
	return names
}

func (r *eventRecorder) byName(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []recordedEvent
	for _, event := range r.events {
		if event.name == name {
			matched = append(matched, event)
		}
	}
	return matched
}

// userMessages builds a single-user-turn conversation.
func userMessages(query string) []llm.Message {
	return []llm.Message{{Role: llm.MessageRoleUser, Content: query}}
}
