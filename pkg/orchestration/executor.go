package orchestration

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/agenticwork/maestro/internal/log"
	"github.com/agenticwork/maestro/pkg/errors"
	"github.com/agenticwork/maestro/pkg/llm"
	"github.com/agenticwork/maestro/pkg/llm/pricing"
)

// CompletionDispatcher resolves a provider and dispatches a completion
// request, returning either a full response or a chunk stream. Satisfied by
// llm.Registry.
type CompletionDispatcher interface {
	CreateCompletion(ctx context.Context, req llm.CompletionRequest, hint string) (*llm.CompletionResult, error)
}

// RoleResponse is the outcome of executing one role, including any fallback
// retry.
type RoleResponse struct {
	Role         ModelRole
	Model        string
	Provider     string
	Content      string
	Thinking     string
	ToolCalls    []llm.ToolCall
	FinishReason llm.FinishReason
	Usage        llm.TokenUsage
	CostUSD      float64

	// Duration is wall-clock around the provider call(s), including any
	// fallback retry.
	Duration        time.Duration
	TimeToFirstByte time.Duration

	// Streamed reports whether the response was collected from a stream.
	// Streamed thinking and tool calls were already emitted chunk by chunk.
	Streamed bool

	// UsedFallback reports that the fallback model produced this response.
	UsedFallback bool

	// Degraded reports that both the primary and fallback attempts failed;
	// all metrics are zero and the orchestrator should proceed to the
	// fallback role.
	Degraded bool

	// NextAction is the role's hint to the handoff controller.
	NextAction NextAction
}

// ExecuteParams carries everything one role execution needs.
type ExecuteParams struct {
	Role     ModelRole
	Config   ModelRoleConfig
	Messages []llm.Message
	Tools    []llm.Tool
	Context  *HandoffContext
	Emit     EmitFunc
}

// RoleExecutor invokes the completion provider for one role, applying a
// single fallback-model retry on failure.
type RoleExecutor struct {
	dispatcher CompletionDispatcher
	collector  *StreamCollector
	controller *HandoffController
	pricing    *pricing.Manager
	logger     *slog.Logger
}

// NewRoleExecutor creates an executor. A nil pricing manager falls back to
// built-in rates; a nil logger discards.
func NewRoleExecutor(dispatcher CompletionDispatcher, controller *HandoffController, priceMgr *pricing.Manager, logger *slog.Logger) *RoleExecutor {
	if priceMgr == nil {
		priceMgr = pricing.NewManager()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RoleExecutor{
		dispatcher: dispatcher,
		collector:  NewStreamCollector(),
		controller: controller,
		pricing:    priceMgr,
		logger:     logger,
	}
}

// Execute runs one role. Provider failures are recovered with exactly one
// fallback-model retry; if both attempts fail the returned response is
// flagged Degraded with zero metrics and the error log records the
// failures. Two failures are fatal rather than degraded: a missing model is
// a configuration error, and a cancelled or expired context is returned
// as-is since retrying it cannot succeed.
func (e *RoleExecutor) Execute(ctx context.Context, params ExecuteParams) (*RoleResponse, error) {
	if params.Config.Model == "" {
		return nil, &errors.ConfigError{
			Key:    "roles." + string(params.Role) + ".model",
			Reason: "role has no model assigned",
		}
	}

	start := time.Now()

	model := params.Config.Model
	resp, err := e.attempt(ctx, params, model)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		fallback := params.Config.FallbackModel
		if fallback != "" && fallback != params.Config.Model {
			// The primary failure is retryable by definition: we recover
			// by promoting the fallback model, with no further fallback.
			e.controller.RecordError(params.Context, params.Role, params.Config.Model, err.Error(), true)
			e.logger.Warn("role execution failed, retrying with fallback model",
				log.String(log.RoleKey, string(params.Role)),
				log.String(log.ModelKey, params.Config.Model),
				log.String("fallback_model", fallback),
				log.Error(err),
			)

			model = fallback
			resp, err = e.attempt(ctx, params, fallback)
			if err == nil {
				resp.UsedFallback = true
			}
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		e.controller.RecordError(params.Context, params.Role, model, err.Error(), errors.IsRetryable(err))
		e.logger.Error("role execution failed",
			log.String(log.RoleKey, string(params.Role)),
			log.String(log.ModelKey, model),
			log.Error(err),
		)
		return &RoleResponse{
			Role:       params.Role,
			Model:      params.Config.Model,
			Provider:   params.Config.Provider,
			Duration:   time.Since(start),
			Degraded:   true,
			NextAction: ActionFallback,
		}, nil
	}

	resp.Duration = time.Since(start)
	return resp, nil
}

// attempt runs a single provider call with the given model.
func (e *RoleExecutor) attempt(ctx context.Context, params ExecuteParams, model string) (*RoleResponse, error) {
	req := e.buildRequest(params, model)

	result, err := e.dispatcher.CreateCompletion(ctx, req, params.Config.Provider)
	if err != nil {
		return nil, err
	}

	collected, err := e.collector.Collect(ctx, result, params.Role, params.Emit)
	if err != nil {
		return nil, err
	}

	cost := pricing.CalculateCost(e.pricing.GetPricing(model), pricing.TokenUsage{
		InputTokens:    collected.Usage.InputTokens,
		OutputTokens:   collected.Usage.OutputTokens,
		ThinkingTokens: collected.Usage.ThinkingTokens,
		TotalTokens:    collected.Usage.TotalTokens,
	})

	return &RoleResponse{
		Role:            params.Role,
		Model:           model,
		Provider:        result.Provider,
		Content:         collected.Content,
		Thinking:        collected.Thinking,
		ToolCalls:       collected.ToolCalls,
		FinishReason:    collected.FinishReason,
		Usage:           collected.Usage,
		CostUSD:         cost.Amount,
		TimeToFirstByte: collected.TimeToFirstByte,
		Streamed:        collected.Streamed,
	}, nil
}

// buildRequest maps the role configuration onto a provider-agnostic
// completion request. Role-specific extensions: the thinking budget applies
// to the reasoning role, the tool list to the tool execution role.
func (e *RoleExecutor) buildRequest(params ExecuteParams, model string) llm.CompletionRequest {
	req := llm.CompletionRequest{
		Messages:    params.Messages,
		Model:       model,
		Temperature: params.Config.Temperature,
		MaxTokens:   params.Config.MaxTokens,
		Stream:      true,
		Metadata: map[string]string{
			"orchestration_id": params.Context.OrchestrationID,
			"role":             string(params.Role),
		},
	}

	switch params.Role {
	case RoleReasoning:
		req.ThinkingBudget = params.Config.ThinkingBudget
	case RoleToolExecution:
		req.Tools = params.Tools
	case RoleSynthesis, RoleFallback:
		// Text-only stages: no tools, no extended reasoning.
	}

	return req
}
