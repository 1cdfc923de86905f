package orchestration

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/agenticwork/maestro/pkg/llm"
)

// CollectedResponse is the normalized envelope a role execution reduces to,
// whether the provider streamed or answered synchronously.
type CollectedResponse struct {
	Content         string
	Thinking        string
	ToolCalls       []llm.ToolCall
	Usage           llm.TokenUsage
	FinishReason    llm.FinishReason
	TimeToFirstByte time.Duration
	Streamed        bool
}

// StreamCollector reduces a provider completion result into one normalized
// response. Streams are consumed with a single reader, so chunk processing
// is ordered; each emit call completes before the next chunk is read, which
// lets a slow consumer throttle provider reads.
type StreamCollector struct{}

// NewStreamCollector creates a collector.
func NewStreamCollector() *StreamCollector {
	return &StreamCollector{}
}

// Collect consumes the completion result. For the synchronous shape the
// response maps across directly. For the streaming shape, content deltas
// accumulate in arrival order, thinking and tool-call deltas are re-emitted
// immediately as they arrive, and the last usage and finish reason seen win.
func (c *StreamCollector) Collect(ctx context.Context, result *llm.CompletionResult, role ModelRole, emit EmitFunc) (*CollectedResponse, error) {
	emit = safeEmit(emit)

	if !result.Streaming() {
		resp := result.Response
		return &CollectedResponse{
			Content:      resp.Content,
			Thinking:     resp.Thinking,
			ToolCalls:    resp.ToolCalls,
			Usage:        resp.Usage,
			FinishReason: resp.FinishReason,
		}, nil
	}

	start := time.Now()

	var content strings.Builder
	var thinking strings.Builder
	var usage llm.TokenUsage
	var finish llm.FinishReason
	var ttfb time.Duration

	// Tool calls are assembled incrementally, keyed by chunk index.
	partials := map[int]*partialToolCall{}

	for chunk := range result.Chunks {
		if ttfb == 0 {
			ttfb = time.Since(start)
		}

		if chunk.Error != nil {
			return nil, chunk.Error
		}

		if chunk.Delta.Content != "" {
			content.WriteString(chunk.Delta.Content)
			emit(EventRoleStream, map[string]interface{}{
				"role":    string(role),
				"content": chunk.Delta.Content,
			})
		}

		if chunk.Delta.Thinking != "" {
			thinking.WriteString(chunk.Delta.Thinking)
			emit(EventRoleThinking, map[string]interface{}{
				"role":     string(role),
				"thinking": chunk.Delta.Thinking,
			})
		}

		if delta := chunk.Delta.ToolCallDelta; delta != nil {
			partial, ok := partials[delta.Index]
			if !ok {
				partial = &partialToolCall{index: delta.Index}
				partials[delta.Index] = partial
			}
			if delta.ID != "" {
				partial.id = delta.ID
			}
			if delta.Name != "" {
				partial.name = delta.Name
			}
			partial.args.WriteString(delta.ArgumentsDelta)

			emit(EventRoleToolCall, map[string]interface{}{
				"role":      string(role),
				"index":     delta.Index,
				"id":        delta.ID,
				"name":      delta.Name,
				"arguments": delta.ArgumentsDelta,
			})
		}

		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	return &CollectedResponse{
		Content:         content.String(),
		Thinking:        thinking.String(),
		ToolCalls:       assembleToolCalls(partials),
		Usage:           usage,
		FinishReason:    finish,
		TimeToFirstByte: ttfb,
		Streamed:        true,
	}, nil
}

type partialToolCall struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

// assembleToolCalls orders accumulated partial tool calls by index.
func assembleToolCalls(partials map[int]*partialToolCall) []llm.ToolCall {
	if len(partials) == 0 {
		return nil
	}

	ordered := make([]*partialToolCall, 0, len(partials))
	for _, partial := range partials {
		ordered = append(ordered, partial)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

	calls := make([]llm.ToolCall, 0, len(ordered))
	for _, partial := range ordered {
		calls = append(calls, llm.ToolCall{
			ID:        partial.id,
			Name:      partial.name,
			Arguments: partial.args.String(),
		})
	}
	return calls
}
