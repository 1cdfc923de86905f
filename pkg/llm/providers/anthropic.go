// Package providers contains concrete implementations of LLM providers.
package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenticwork/maestro/pkg/errors"
	"github.com/agenticwork/maestro/pkg/httpclient"
	"github.com/agenticwork/maestro/pkg/llm"
)

const (
	// anthropicAPIBaseURL is the base URL for the Anthropic API
	anthropicAPIBaseURL = "https://api.anthropic.com/v1"

	// anthropicAPIVersion is the API version to use
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicProvider implements the Provider interface for Anthropic's Claude models.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider instance.
// The apiKey should come from the environment or secure storage, never config files.
func NewAnthropicProvider(apiKey string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, &errors.ConfigError{
			Key:    "anthropic.api_key",
			Reason: "API key is required for Anthropic provider",
		}
	}

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 120 * time.Second // LLM requests can take a while
	cfg.UserAgent = "maestro-anthropic/1.0"
	// Retries are handled above this layer, where the role executor can swap
	// in a fallback model instead of hammering the same one.
	cfg.RetryAttempts = 0

	httpClient, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &AnthropicProvider{
		apiKey:     apiKey,
		baseURL:    anthropicAPIBaseURL,
		httpClient: httpClient,
	}, nil
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Capabilities returns the features supported by this provider.
func (p *AnthropicProvider) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Streaming: true,
		Tools:     true,
		Thinking:  true,
		Models:    anthropicModels,
	}
}

// Complete sends a synchronous completion request to the Anthropic Messages API.
func (p *AnthropicProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	requestID := uuid.New().String()

	apiReq, err := p.buildAPIRequest(req, false)
	if err != nil {
		return nil, err
	}

	resp, err := p.doRequest(ctx, apiReq, requestID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:   "anthropic",
			Model:      apiReq.Model,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read response: %v", err),
			RequestID:  requestID,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.errorFromResponse(resp.StatusCode, respBody, apiReq.Model, requestID)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, &errors.ProviderError{
			Provider:  "anthropic",
			Model:     apiReq.Model,
			Message:   fmt.Sprintf("failed to parse response: %v", err),
			RequestID: requestID,
		}
	}

	return p.parseResponse(&apiResp, requestID)
}

// Stream sends a streaming completion request and converts the SSE event
// stream into StreamChunks.
func (p *AnthropicProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	requestID := uuid.New().String()

	apiReq, err := p.buildAPIRequest(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := p.doRequest(ctx, apiReq, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, p.errorFromResponse(resp.StatusCode, respBody, apiReq.Model, requestID)
	}

	chunks := make(chan llm.StreamChunk)
	go p.consumeEventStream(ctx, resp.Body, chunks, requestID)

	return chunks, nil
}

// consumeEventStream reads SSE events from the response body until EOF and
// emits normalized chunks. It always closes the channel and the body.
func (p *AnthropicProvider) consumeEventStream(ctx context.Context, body io.ReadCloser, chunks chan<- llm.StreamChunk, requestID string) {
	defer close(chunks)
	defer body.Close()

	var usage llm.TokenUsage
	var finish llm.FinishReason

	// Content block types by index, so deltas can be interpreted against
	// the block that opened them.
	blockTypes := map[int]string{}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	emit := func(chunk llm.StreamChunk) bool {
		chunk.RequestID = requestID
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				usage.InputTokens = event.Message.Usage.InputTokens
			}

		case "content_block_start":
			if event.ContentBlock != nil {
				blockTypes[event.Index] = event.ContentBlock.Type
				if event.ContentBlock.Type == "tool_use" {
					ok := emit(llm.StreamChunk{Delta: llm.StreamDelta{
						ToolCallDelta: &llm.ToolCallDelta{
							Index: event.Index,
							ID:    event.ContentBlock.ID,
							Name:  event.ContentBlock.Name,
						},
					}})
					if !ok {
						return
					}
				}
			}

		case "content_block_delta":
			if event.Delta == nil {
				continue
			}
			var chunk llm.StreamChunk
			switch event.Delta.Type {
			case "text_delta":
				chunk.Delta.Content = event.Delta.Text
			case "thinking_delta":
				chunk.Delta.Thinking = event.Delta.Thinking
			case "input_json_delta":
				// Only tool_use blocks carry meaningful partial JSON.
				if blockTypes[event.Index] != "tool_use" {
					continue
				}
				chunk.Delta.ToolCallDelta = &llm.ToolCallDelta{
					Index:          event.Index,
					ArgumentsDelta: event.Delta.PartialJSON,
				}
			default:
				continue
			}
			if !emit(chunk) {
				return
			}

		case "message_delta":
			if event.Delta != nil && event.Delta.StopReason != "" {
				finish = mapAnthropicStopReason(event.Delta.StopReason)
			}
			if event.Usage != nil {
				usage.OutputTokens = event.Usage.OutputTokens
			}

		case "error":
			msg := "stream error"
			if event.Error != nil {
				msg = event.Error.Message
			}
			emit(llm.StreamChunk{Error: &errors.ProviderError{
				Provider:  "anthropic",
				Message:   msg,
				RequestID: requestID,
			}})
			return

		case "message_stop":
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens + usage.ThinkingTokens
			if finish == "" {
				finish = llm.FinishReasonStop
			}
			emit(llm.StreamChunk{FinishReason: finish, Usage: &usage})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(llm.StreamChunk{Error: &errors.ProviderError{
			Provider:  "anthropic",
			Message:   fmt.Sprintf("stream read failed: %v", err),
			RequestID: requestID,
		}})
	}
}

// buildAPIRequest constructs an anthropicRequest from a CompletionRequest.
func (p *AnthropicProvider) buildAPIRequest(req llm.CompletionRequest, stream bool) (*anthropicRequest, error) {
	if len(req.Messages) == 0 {
		return nil, &errors.ValidationError{
			Field:      "messages",
			Message:    "completion request must have at least one message",
			Suggestion: "Add at least one message to the completion request",
		}
	}

	model := req.Model
	if model == "" {
		model = anthropicModels[0].ID
	}

	// Anthropic uses a separate system field
	var systemPrompt string
	var apiMessages []anthropicMessage

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.MessageRoleSystem:
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content

		case llm.MessageRoleUser:
			apiMessages = append(apiMessages, anthropicMessage{
				Role:    "user",
				Content: []interface{}{anthropicTextContent{Type: "text", Text: msg.Content}},
			})

		case llm.MessageRoleAssistant:
			var content []interface{}
			if msg.Content != "" {
				content = append(content, anthropicTextContent{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					input = map[string]interface{}{}
				}
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": input,
				})
			}
			if len(content) > 0 {
				apiMessages = append(apiMessages, anthropicMessage{Role: "assistant", Content: content})
			}

		case llm.MessageRoleTool:
			apiMessages = append(apiMessages, anthropicMessage{
				Role: "user",
				Content: []interface{}{anthropicToolResultContent{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})
		}
	}

	maxTokens := 4096
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	apiReq := &anthropicRequest{
		Model:         model,
		Messages:      apiMessages,
		MaxTokens:     maxTokens,
		System:        systemPrompt,
		Temperature:   req.Temperature,
		StopSequences: req.StopSequences,
		Stream:        stream,
	}

	if req.ThinkingBudget != nil && *req.ThinkingBudget > 0 {
		apiReq.Thinking = &anthropicThinking{
			Type:         "enabled",
			BudgetTokens: *req.ThinkingBudget,
		}
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	return apiReq, nil
}

// doRequest sends the API request and returns the raw HTTP response.
// The caller owns the response body.
func (p *AnthropicProvider) doRequest(ctx context.Context, apiReq *anthropicRequest, requestID string) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  "anthropic",
			Message:   fmt.Sprintf("failed to marshal request: %v", err),
			RequestID: requestID,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  "anthropic",
			Message:   fmt.Sprintf("failed to create request: %v", err),
			RequestID: requestID,
		}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  "anthropic",
			Model:     apiReq.Model,
			Message:   fmt.Sprintf("request failed: %v", err),
			RequestID: requestID,
		}
	}

	return resp, nil
}

// errorFromResponse converts a non-200 API response into a ProviderError.
func (p *AnthropicProvider) errorFromResponse(statusCode int, respBody []byte, model, requestID string) error {
	var errResp anthropicErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
		return &errors.ProviderError{
			Provider:   "anthropic",
			Model:      model,
			StatusCode: statusCode,
			Message:    errResp.Error.Message,
			Suggestion: suggestionForStatus(statusCode),
			RequestID:  requestID,
		}
	}
	return &errors.ProviderError{
		Provider:   "anthropic",
		Model:      model,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("API request failed with status %d: %s", statusCode, string(respBody)),
		RequestID:  requestID,
	}
}

// suggestionForStatus returns a helpful suggestion based on the HTTP status.
func suggestionForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusUnauthorized:
		return "Check that your API key is valid and correctly configured"
	case http.StatusForbidden:
		return "Your API key may not have access to this model or feature"
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Lower the request rate or raise your quota"
	case http.StatusBadRequest:
		return "Check the request parameters for errors"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return "The provider API is experiencing issues. Retry after a short delay"
	default:
		return ""
	}
}

// parseResponse converts an anthropicResponse to a CompletionResponse.
func (p *AnthropicProvider) parseResponse(resp *anthropicResponse, requestID string) (*llm.CompletionResponse, error) {
	var textContent strings.Builder
	var thinking strings.Builder
	var toolCalls []llm.ToolCall

	for _, block := range resp.Content {
		blockType, _ := block["type"].(string)
		switch blockType {
		case "text":
			if text, ok := block["text"].(string); ok {
				if textContent.Len() > 0 {
					textContent.WriteString("\n")
				}
				textContent.WriteString(text)
			}
		case "thinking":
			if text, ok := block["thinking"].(string); ok {
				thinking.WriteString(text)
			}
		case "tool_use":
			id, _ := block["id"].(string)
			name, _ := block["name"].(string)
			inputJSON, err := json.Marshal(block["input"])
			if err != nil {
				inputJSON = []byte("{}")
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:        id,
				Name:      name,
				Arguments: string(inputJSON),
			})
		}
	}

	usage := llm.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &llm.CompletionResponse{
		Content:      textContent.String(),
		Thinking:     thinking.String(),
		ToolCalls:    toolCalls,
		FinishReason: mapAnthropicStopReason(resp.StopReason),
		Usage:        usage,
		Model:        resp.Model,
		Provider:     "anthropic",
		RequestID:    requestID,
		Created:      time.Now(),
	}, nil
}

// mapAnthropicStopReason converts Anthropic stop reasons to FinishReason.
func mapAnthropicStopReason(reason string) llm.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return llm.FinishReasonStop
	case "max_tokens":
		return llm.FinishReasonLength
	case "tool_use":
		return llm.FinishReasonToolCalls
	default:
		return llm.FinishReasonStop
	}
}

// Anthropic API wire types.

type anthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []anthropicMessage `json:"messages"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	Tools         []anthropicTool    `json:"tools,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	Thinking      *anthropicThinking `json:"thinking,omitempty"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicMessage struct {
	Role    string        `json:"role"`
	Content []interface{} `json:"content"`
}

type anthropicTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicToolResultContent struct {
	Type      string `json:"type"`
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicResponse struct {
	ID         string                   `json:"id"`
	Model      string                   `json:"model"`
	Content    []map[string]interface{} `json:"content"`
	StopReason string                   `json:"stop_reason"`
	Usage      anthropicUsage           `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type anthropicStreamEvent struct {
	Type         string                `json:"type"`
	Index        int                   `json:"index"`
	Message      *anthropicStreamMsg   `json:"message"`
	ContentBlock *anthropicStreamBlock `json:"content_block"`
	Delta        *anthropicStreamDelta `json:"delta"`
	Usage        *anthropicUsage       `json:"usage"`
	Error        *anthropicStreamError `json:"error"`
}

type anthropicStreamMsg struct {
	ID    string         `json:"id"`
	Usage anthropicUsage `json:"usage"`
}

type anthropicStreamBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type anthropicStreamDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Thinking    string `json:"thinking"`
	PartialJSON string `json:"partial_json"`
	StopReason  string `json:"stop_reason"`
}

type anthropicStreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// anthropicModels lists the models this provider advertises.
var anthropicModels = []llm.ModelInfo{
	{
		ID:               "claude-opus-4-20250514",
		Name:             "Claude Opus 4",
		Tier:             llm.ModelTierPremium,
		MaxTokens:        200000,
		MaxOutputTokens:  32000,
		SupportsTools:    true,
		SupportsThinking: true,
		Description:      "Most capable model for complex reasoning and analysis.",
	},
	{
		ID:               "claude-sonnet-4-20250514",
		Name:             "Claude Sonnet 4",
		Tier:             llm.ModelTierBalanced,
		MaxTokens:        200000,
		MaxOutputTokens:  64000,
		SupportsTools:    true,
		SupportsThinking: true,
		Description:      "Balanced capability and cost for most tasks.",
	},
	{
		ID:              "claude-3-5-haiku-20241022",
		Name:            "Claude 3.5 Haiku",
		Tier:            llm.ModelTierEconomy,
		MaxTokens:       200000,
		MaxOutputTokens: 8192,
		SupportsTools:   true,
		Description:     "Fast, cost-effective model for simple tasks.",
	},
}
