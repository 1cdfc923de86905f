package providers

import (
	"context"
	"time"

	"github.com/agenticwork/maestro/pkg/llm"
)

// defaultOllamaURL is the default Ollama API endpoint.
const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements the Provider interface for a local Ollama
// instance via its OpenAI-compatible endpoint.
type OllamaProvider struct {
	client *chatClient
}

// NewOllamaProvider creates a new Ollama provider instance.
// An empty baseURL falls back to the local default.
func NewOllamaProvider(baseURL string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	// Local models can be slow to load on first request.
	client, err := newChatClient("ollama", baseURL+"/v1", "", 300*time.Second)
	if err != nil {
		return nil, err
	}

	return &OllamaProvider{client: client}, nil
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Capabilities returns the features supported by this provider.
func (p *OllamaProvider) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		Streaming: true,
		Models:    ollamaModels,
	}
}

// Complete sends a synchronous completion request.
func (p *OllamaProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return p.client.complete(ctx, req)
}

// Stream sends a streaming completion request.
func (p *OllamaProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return p.client.stream(ctx, req)
}

// ollamaModels lists commonly available local models. The actual set depends
// on what the user has pulled.
var ollamaModels = []llm.ModelInfo{
	{
		ID:          "llama3",
		Name:        "Llama 3",
		Tier:        llm.ModelTierBalanced,
		MaxTokens:   8192,
		Description: "Local general-purpose model.",
	},
	{
		ID:          "mistral",
		Name:        "Mistral",
		Tier:        llm.ModelTierEconomy,
		MaxTokens:   8192,
		Description: "Fast local model for simple tasks.",
	},
}
