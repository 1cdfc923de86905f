package llm

import (
	"encoding/json"
	"fmt"
)

// Gateway providers deliver stream chunks in one of two wire shapes: the
// OpenAI chat-completions shape, where deltas live under choices[0].delta,
// and a flatter direct shape with a top-level type discriminator. Both are
// normalized here into StreamChunk before any aggregation logic sees them,
// so format detection never leaks past this file.

// openAIChunk mirrors the OpenAI streaming chat-completion chunk shape.
type openAIChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning_content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *rawUsage `json:"usage"`
}

// flatChunk mirrors the direct chunk shape with a type discriminator.
// Types: content, thinking, reasoning, tool_call, usage, finish, error.
type flatChunk struct {
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Arguments    string    `json:"arguments"`
	Index        int       `json:"index"`
	FinishReason string    `json:"finish_reason"`
	Usage        *rawUsage `json:"usage"`
	Message      string    `json:"message"`
}

type rawUsage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	ThinkingTokens   int `json:"thinking_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// toTokenUsage converts a raw usage payload, accepting both the
// input/output and prompt/completion field-name conventions.
func (u *rawUsage) toTokenUsage() *TokenUsage {
	usage := &TokenUsage{
		InputTokens:    u.InputTokens,
		OutputTokens:   u.OutputTokens,
		ThinkingTokens: u.ThinkingTokens,
		TotalTokens:    u.TotalTokens,
	}
	if usage.InputTokens == 0 {
		usage.InputTokens = u.PromptTokens
	}
	if usage.OutputTokens == 0 {
		usage.OutputTokens = u.CompletionTokens
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens + usage.ThinkingTokens
	}
	return usage
}

// ParseChunk decodes a raw streamed chunk payload into a normalized
// StreamChunk. It transparently accepts the OpenAI choices[0].delta shape
// and the flat {type, content, ...} shape.
func ParseChunk(data []byte) (StreamChunk, error) {
	// The presence of a "choices" array identifies the OpenAI shape.
	var probe struct {
		Choices json.RawMessage `json:"choices"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return StreamChunk{}, fmt.Errorf("decoding stream chunk: %w", err)
	}

	if len(probe.Choices) > 0 && string(probe.Choices) != "null" {
		return parseOpenAIChunk(data)
	}
	return parseFlatChunk(data)
}

func parseOpenAIChunk(data []byte) (StreamChunk, error) {
	var raw openAIChunk
	if err := json.Unmarshal(data, &raw); err != nil {
		return StreamChunk{}, fmt.Errorf("decoding openai chunk: %w", err)
	}

	chunk := StreamChunk{RequestID: raw.ID}

	if raw.Usage != nil {
		chunk.Usage = raw.Usage.toTokenUsage()
	}

	if len(raw.Choices) == 0 {
		return chunk, nil
	}

	choice := raw.Choices[0]
	chunk.Delta.Content = choice.Delta.Content
	chunk.Delta.Thinking = choice.Delta.Reasoning

	if len(choice.Delta.ToolCalls) > 0 {
		tc := choice.Delta.ToolCalls[0]
		chunk.Delta.ToolCallDelta = &ToolCallDelta{
			Index:          tc.Index,
			ID:             tc.ID,
			Name:           tc.Function.Name,
			ArgumentsDelta: tc.Function.Arguments,
		}
	}

	if choice.FinishReason != "" {
		chunk.FinishReason = mapFinishReason(choice.FinishReason)
	}

	return chunk, nil
}

func parseFlatChunk(data []byte) (StreamChunk, error) {
	var raw flatChunk
	if err := json.Unmarshal(data, &raw); err != nil {
		return StreamChunk{}, fmt.Errorf("decoding flat chunk: %w", err)
	}

	var chunk StreamChunk

	switch raw.Type {
	case "content", "text":
		chunk.Delta.Content = raw.Content

	case "thinking", "reasoning":
		chunk.Delta.Thinking = raw.Content

	case "tool_call":
		// In this shape the id field names the tool call, not the request.
		chunk.Delta.ToolCallDelta = &ToolCallDelta{
			Index:          raw.Index,
			ID:             raw.ID,
			Name:           raw.Name,
			ArgumentsDelta: raw.Arguments,
		}

	case "usage":
		if raw.Usage != nil {
			chunk.Usage = raw.Usage.toTokenUsage()
		}

	case "finish", "done":
		chunk.FinishReason = mapFinishReason(raw.FinishReason)
		if raw.Usage != nil {
			chunk.Usage = raw.Usage.toTokenUsage()
		}

	case "error":
		chunk.FinishReason = FinishReasonError
		chunk.Error = fmt.Errorf("stream error: %s", raw.Message)

	default:
		// Chunks with an unknown type but recognizable fields still carry
		// their payload through.
		chunk.Delta.Content = raw.Content
		if raw.Usage != nil {
			chunk.Usage = raw.Usage.toTokenUsage()
		}
		if raw.FinishReason != "" {
			chunk.FinishReason = mapFinishReason(raw.FinishReason)
		}
	}

	return chunk, nil
}

// mapFinishReason normalizes provider finish-reason spellings.
func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop", "end_turn", "stop_sequence":
		return FinishReasonStop
	case "length", "max_tokens":
		return FinishReasonLength
	case "tool_calls", "tool_use", "function_call":
		return FinishReasonToolCalls
	case "content_filter":
		return FinishReasonContentFilter
	case "error":
		return FinishReasonError
	case "":
		return ""
	default:
		return FinishReason(reason)
	}
}
