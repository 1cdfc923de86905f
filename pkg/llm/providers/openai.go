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

// openAIAPIBaseURL is the base URL for the OpenAI API.
const openAIAPIBaseURL = "https://api.openai.com/v1"

// chatClient speaks the OpenAI chat-completions wire protocol. It backs both
// the OpenAI provider and any OpenAI-compatible endpoint such as Ollama.
type chatClient struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newChatClient(name, baseURL, apiKey string, timeout time.Duration) (*chatClient, error) {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = timeout
	cfg.UserAgent = "maestro-" + name + "/1.0"
	// Request bodies are built from bytes.Reader, so the transport can
	// replay them on transient 5xx/429 failures before the role executor
	// ever sees an error and reaches for its fallback model.
	cfg.RetryAttempts = 2

	httpClient, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &chatClient{
		name:       name,
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// OpenAIProvider implements the Provider interface for OpenAI's chat models.
type OpenAIProvider struct {
	client *chatClient
}

// NewOpenAIProvider creates a new OpenAI provider instance.
func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, &errors.ConfigError{
			Key:    "openai.api_key",
			Reason: "API key is required for OpenAI provider",
		}
	}

	client, err := newChatClient("openai", openAIAPIBaseURL, apiKey, 120*time.Second)
	if err != nil {
		return nil, err
	}

	return &OpenAIProvider{client: client}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Capabilities returns the features supported by this provider.
func (p *OpenAIProvider) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Streaming: true,
		Tools:     true,
		Thinking:  true,
		Models:    openAIModels,
	}
}

// Complete sends a synchronous completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return p.client.complete(ctx, req)
}

// Stream sends a streaming completion request.
func (p *OpenAIProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return p.client.stream(ctx, req)
}

// complete issues a non-streaming chat-completions request.
func (c *chatClient) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	requestID := uuid.New().String()

	resp, err := c.doRequest(ctx, req, false, requestID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:   c.name,
			Model:      req.Model,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read response: %v", err),
			RequestID:  requestID,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp.StatusCode, respBody, req.Model, requestID)
	}

	var apiResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, &errors.ProviderError{
			Provider:  c.name,
			Model:     req.Model,
			Message:   fmt.Sprintf("failed to parse response: %v", err),
			RequestID: requestID,
		}
	}

	if len(apiResp.Choices) == 0 {
		return nil, &errors.ProviderError{
			Provider:  c.name,
			Model:     req.Model,
			Message:   "response contained no choices",
			RequestID: requestID,
		}
	}

	choice := apiResp.Choices[0]

	var toolCalls []llm.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	usage := llm.TokenUsage{
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
		TotalTokens:  apiResp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	return &llm.CompletionResponse{
		Content:      choice.Message.Content,
		Thinking:     choice.Message.Reasoning,
		ToolCalls:    toolCalls,
		FinishReason: llm.FinishReason(choice.FinishReason),
		Usage:        usage,
		Model:        apiResp.Model,
		Provider:     c.name,
		RequestID:    requestID,
		Created:      time.Now(),
	}, nil
}

// stream issues a streaming chat-completions request. Each SSE data line is
// decoded through ParseChunk so downstream consumers only ever see the
// normalized chunk shape.
func (c *chatClient) stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	requestID := uuid.New().String()

	resp, err := c.doRequest(ctx, req, true, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, c.errorFromResponse(resp.StatusCode, respBody, req.Model, requestID)
	}

	chunks := make(chan llm.StreamChunk)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		emit := func(chunk llm.StreamChunk) bool {
			chunk.RequestID = requestID
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" || data == "[DONE]" {
				continue
			}

			chunk, err := llm.ParseChunk([]byte(data))
			if err != nil {
				// Skip malformed keepalive or vendor-extension lines.
				continue
			}
			if !emit(chunk) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			emit(llm.StreamChunk{Error: &errors.ProviderError{
				Provider:  c.name,
				Model:     req.Model,
				Message:   fmt.Sprintf("stream read failed: %v", err),
				RequestID: requestID,
			}})
		}
	}()

	return chunks, nil
}

// doRequest builds and sends a chat-completions HTTP request.
// The caller owns the response body.
func (c *chatClient) doRequest(ctx context.Context, req llm.CompletionRequest, stream bool, requestID string) (*http.Response, error) {
	if len(req.Messages) == 0 {
		return nil, &errors.ValidationError{
			Field:      "messages",
			Message:    "completion request must have at least one message",
			Suggestion: "Add at least one message to the completion request",
		}
	}

	apiReq := chatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.StopSequences,
		Stream:      stream,
	}
	if stream {
		apiReq.StreamOptions = &chatStreamOptions{IncludeUsage: true}
	}

	for _, msg := range req.Messages {
		apiMsg := chatMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, tc := range msg.ToolCalls {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, chatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: chatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		apiReq.Messages = append(apiReq.Messages, apiMsg)
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  c.name,
			Message:   fmt.Sprintf("failed to marshal request: %v", err),
			RequestID: requestID,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  c.name,
			Message:   fmt.Sprintf("failed to create request: %v", err),
			RequestID: requestID,
		}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &errors.ProviderError{
			Provider:  c.name,
			Model:     req.Model,
			Message:   fmt.Sprintf("request failed: %v", err),
			RequestID: requestID,
		}
	}

	return resp, nil
}

// errorFromResponse converts a non-200 API response into a ProviderError.
func (c *chatClient) errorFromResponse(statusCode int, respBody []byte, model, requestID string) error {
	var errResp chatErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
		return &errors.ProviderError{
			Provider:   c.name,
			Model:      model,
			StatusCode: statusCode,
			Message:    errResp.Error.Message,
			Suggestion: suggestionForStatus(statusCode),
			RequestID:  requestID,
		}
	}
	return &errors.ProviderError{
		Provider:   c.name,
		Model:      model,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("API request failed with status %d: %s", statusCode, string(respBody)),
		RequestID:  requestID,
	}
}

// OpenAI chat-completions wire types.

type chatCompletionRequest struct {
	Model         string             `json:"model"`
	Messages      []chatMessage      `json:"messages"`
	Temperature   *float64           `json:"temperature,omitempty"`
	MaxTokens     *int               `json:"max_tokens,omitempty"`
	Tools         []chatTool         `json:"tools,omitempty"`
	Stop          []string           `json:"stop,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	StreamOptions *chatStreamOptions `json:"stream_options,omitempty"`
}

type chatStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Reasoning  string         `json:"reasoning_content,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string          `json:"type"`
	Function chatFunctionDef `json:"function"`
}

type chatFunctionDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// openAIModels lists the models this provider advertises.
var openAIModels = []llm.ModelInfo{
	{
		ID:               "o1",
		Name:             "o1",
		Tier:             llm.ModelTierPremium,
		MaxTokens:        200000,
		MaxOutputTokens:  100000,
		SupportsTools:    true,
		SupportsThinking: true,
		Description:      "Reasoning model for complex multi-step tasks.",
	},
	{
		ID:              "gpt-4o",
		Name:            "GPT-4o",
		Tier:            llm.ModelTierBalanced,
		MaxTokens:       128000,
		MaxOutputTokens: 16384,
		SupportsTools:   true,
		Description:     "General-purpose model with strong tool use.",
	},
	{
		ID:              "gpt-4o-mini",
		Name:            "GPT-4o mini",
		Tier:            llm.ModelTierEconomy,
		MaxTokens:       128000,
		MaxOutputTokens: 16384,
		SupportsTools:   true,
		Description:     "Fast and cost-effective for simple tasks.",
	},
}
