package orchestration

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agenticwork/maestro/internal/log"
	"github.com/agenticwork/maestro/pkg/llm"
	"github.com/agenticwork/maestro/pkg/llm/cost"
	"github.com/agenticwork/maestro/pkg/llm/pricing"
)

// Request is one orchestration invocation.
type Request struct {
	// OrchestrationID identifies the run; generated when empty.
	OrchestrationID string

	// Messages is the conversation history including the current prompt.
	Messages []llm.Message

	// SystemPrompt is appended to each role's framing preamble.
	SystemPrompt string

	// Tools available to the tool execution role.
	Tools []llm.Tool

	// Config is the immutable routing configuration for this run. Nil uses
	// the engine defaults.
	Config *MultiModelConfig

	// SliderPosition is the optional cost/quality knob (0.0-1.0).
	SliderPosition *float64

	// Plan is an optional precomputed execution plan. When nil the
	// orchestrator runs the routing analyzer itself.
	Plan *ExecutionPlan

	// Emit receives lifecycle events. May be nil.
	Emit EmitFunc
}

// Orchestrator drives multi-model runs: it consumes the routing analyzer's
// plan, loops over roles invoking the executor and handoff controller, emits
// lifecycle events, and produces the final result. One orchestrator instance
// serves concurrent requests; all per-run state lives in the HandoffContext.
type Orchestrator struct {
	analyzer   *Analyzer
	controller *HandoffController
	executor   *RoleExecutor
	dispatcher CompletionDispatcher
	priceMgr   *pricing.Manager
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *Metrics
	usageStore cost.Store
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithUsageStore enables per-role usage recording.
func WithUsageStore(store cost.Store) Option {
	return func(o *Orchestrator) { o.usageStore = store }
}

// WithPricing sets the pricing manager used for per-role cost figures.
func WithPricing(mgr *pricing.Manager) Option {
	return func(o *Orchestrator) { o.priceMgr = mgr }
}

// New creates an orchestrator around the given completion dispatcher.
func New(dispatcher CompletionDispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer:   NewAnalyzer(),
		controller: NewHandoffController(),
		dispatcher: dispatcher,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     otel.Tracer("maestro/orchestration"),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.executor = NewRoleExecutor(dispatcher, o.controller, o.priceMgr, o.logger)
	return o
}

// Analyzer exposes the routing analyzer for callers that want the pure
// routing decision without running an orchestration.
func (o *Orchestrator) Analyzer() *Analyzer {
	return o.analyzer
}

// Orchestrate runs one multi-model orchestration. Callers always receive
// either a completed result or an error; partial progress is only visible
// through the emitted events.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (*OrchestrationResult, error) {
	cfg := req.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := req.OrchestrationID
	if id == "" {
		id = uuid.New().String()
	}
	emit := safeEmit(req.Emit)
	logger := log.WithOrchestration(o.logger, id)

	plan := req.Plan
	if plan == nil {
		decision := o.analyzer.AnalyzeRequest(req.Messages, req.Tools, req.SliderPosition, cfg)
		if decision.UseMultiModel && decision.Plan != nil {
			plan = decision.Plan
			logger.Info("multi-model routing engaged",
				log.String("reason", decision.Reason),
				log.String("complexity", string(decision.Analysis.Complexity)),
			)
		} else {
			// Single-model path still runs through the engine as a
			// synthesis-only plan.
			plan = &ExecutionPlan{Roles: []ModelRole{RoleSynthesis}}
			logger.Debug("single-model routing",
				log.String("reason", decision.Reason),
			)
		}
	}

	ctx, span := o.tracer.Start(ctx, "orchestration.run",
		trace.WithAttributes(
			attribute.String("orchestration.id", id),
			attribute.Int("orchestration.planned_roles", len(plan.Roles)),
		),
	)
	defer span.End()

	start := time.Now()
	hctx := o.controller.CreateInitialContext(id)
	maxHandoffs := cfg.MaxHandoffs()

	emit(EventOrchestrationStart, map[string]interface{}{
		"orchestration_id":   id,
		"roles":              roleNames(plan.Roles),
		"estimated_cost_usd": plan.EstimatedCostUSD,
	})

	result, err := o.runPlan(ctx, req, cfg, plan, hctx, maxHandoffs, emit, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.metrics.observeOrchestration("error", time.Since(start).Seconds())

		logger.Error("orchestration failed", log.Error(err))
		emit(EventOrchestrationError, map[string]interface{}{
			"orchestration_id": id,
			"error":            err.Error(),
			"roles_executed":   roleNames(result.RolesExecuted),
		})
		return nil, err
	}

	result.HandoffCount = hctx.HandoffCount
	result.TotalUsage = o.controller.TotalTokens(hctx)
	result.TotalCostUSD = o.controller.TotalCost(hctx)
	result.TotalDuration = o.controller.TotalDuration(hctx)

	span.SetAttributes(
		attribute.Int("orchestration.handoffs", result.HandoffCount),
		attribute.Int("orchestration.total_tokens", result.TotalUsage.TotalTokens),
	)
	o.metrics.observeOrchestration("completed", time.Since(start).Seconds())

	emit(EventOrchestrationComplete, map[string]interface{}{
		"orchestration_id": id,
		"roles_executed":   roleNames(result.RolesExecuted),
		"handoff_count":    result.HandoffCount,
		"total_cost_usd":   result.TotalCostUSD,
		"total_tokens":     result.TotalUsage.TotalTokens,
		"duration_ms":      time.Since(start).Milliseconds(),
	})
	logger.Info("orchestration complete",
		log.Int("handoffs", result.HandoffCount),
		log.Int("roles_executed", len(result.RolesExecuted)),
		log.Duration(log.DurationKey, time.Since(start).Milliseconds()),
	)

	return result, nil
}

// runPlan executes the planned roles sequentially. The partially-built
// result is returned alongside any error so the error event can report the
// roles executed so far.
func (o *Orchestrator) runPlan(ctx context.Context, req Request, cfg *MultiModelConfig, plan *ExecutionPlan, hctx *HandoffContext, maxHandoffs int, emit EmitFunc, logger *slog.Logger) (*OrchestrationResult, error) {
	result := &OrchestrationResult{
		OrchestrationID: hctx.OrchestrationID,
		CostBreakdown:   hctx.CostBreakdown,
	}

	for _, role := range plan.Roles {
		// Soft stop: the loop ends without the remaining planned roles.
		// The last completed role's output stays as the final response.
		if hctx.HandoffCount >= maxHandoffs {
			logger.Warn("handoff budget exhausted, stopping early",
				log.Int("max_handoffs", maxHandoffs),
			)
			break
		}

		roleCfg, ok := cfg.EffectiveRoleConfig(role)
		if !ok || !roleCfg.Enabled {
			logger.Debug("skipping disabled role", log.String(log.RoleKey, string(role)))
			continue
		}

		resp, err := o.executeRole(ctx, req, role, roleCfg, hctx, emit, logger)
		if err != nil {
			return result, err
		}

		o.finishRole(result, hctx, resp, emit)

		decision := o.controller.DetermineNextAction(resp, hctx, maxHandoffs)
		switch decision.Action {
		case ActionComplete:
			if resp.Content != "" {
				result.FinalResponse = resp.Content
			}
			result.ToolCalls = hctx.ToolCalls
			return result, nil

		case ActionHandoff:
			if resp.Content != "" {
				result.FinalResponse = resp.Content
			}
			o.controller.PrepareHandoff(hctx, resp, decision.NextRole)
			o.metrics.observeHandoff()
			emit(EventHandoff, map[string]interface{}{
				"orchestration_id": hctx.OrchestrationID,
				"from_role":        string(resp.Role),
				"to_role":          string(decision.NextRole),
				"handoff_count":    hctx.HandoffCount,
				"reason":           decision.Reason,
			})

		case ActionFallback:
			if err := o.runFallback(ctx, req, cfg, hctx, result, emit, logger); err != nil {
				return result, err
			}
			result.ToolCalls = hctx.ToolCalls
			return result, nil
		}
	}

	result.ToolCalls = hctx.ToolCalls
	return result, nil
}

// executeRole runs one role with full instrumentation.
func (o *Orchestrator) executeRole(ctx context.Context, req Request, role ModelRole, roleCfg ModelRoleConfig, hctx *HandoffContext, emit EmitFunc, logger *slog.Logger) (*RoleResponse, error) {
	ctx, span := o.tracer.Start(ctx, "orchestration.role",
		trace.WithAttributes(
			attribute.String("role", string(role)),
			attribute.String("model", roleCfg.Model),
		),
	)
	defer span.End()

	hctx.CurrentRole = role
	hctx.RoleTimings[role] = RoleTiming{Start: time.Now()}

	emit(EventRoleStart, map[string]interface{}{
		"orchestration_id": hctx.OrchestrationID,
		"role":             string(role),
		"model":            roleCfg.Model,
	})

	messages := o.controller.BuildMessages(role, req.Messages, hctx, req.SystemPrompt)

	resp, err := o.executor.Execute(ctx, ExecuteParams{
		Role:     role,
		Config:   roleCfg,
		Messages: messages,
		Tools:    req.Tools,
		Context:  hctx,
		Emit:     emit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	timing := hctx.RoleTimings[role]
	timing.End = time.Now()
	hctx.RoleTimings[role] = timing

	if resp.UsedFallback {
		span.SetAttributes(attribute.Bool("role.used_fallback", true))
	}
	logger.Debug("role executed",
		log.String(log.RoleKey, string(role)),
		log.String(log.ModelKey, resp.Model),
		log.Int("total_tokens", resp.Usage.TotalTokens),
		log.Duration(log.DurationKey, resp.Duration.Milliseconds()),
	)

	return resp, nil
}

// finishRole applies the bookkeeping every executed role gets: the role is
// appended to the executed list, the cost breakdown entry is unconditionally
// overwritten (including for the terminal role), sync-shaped output emits
// the events a stream would have produced chunk by chunk, and the usage
// record is persisted when a store is configured.
func (o *Orchestrator) finishRole(result *OrchestrationResult, hctx *HandoffContext, resp *RoleResponse, emit EmitFunc) {
	result.RolesExecuted = append(result.RolesExecuted, resp.Role)
	result.HandoffCount = hctx.HandoffCount

	hctx.CostBreakdown[resp.Role] = RoleCost{
		Model:    resp.Model,
		Provider: resp.Provider,
		Usage:    resp.Usage,
		CostUSD:  resp.CostUSD,
	}

	o.controller.RecordToolCalls(hctx, resp)

	if !resp.Streamed {
		if resp.Thinking != "" {
			emit(EventRoleThinking, map[string]interface{}{
				"role":     string(resp.Role),
				"thinking": resp.Thinking,
			})
		}
		for i, call := range resp.ToolCalls {
			emit(EventRoleToolCall, map[string]interface{}{
				"role":      string(resp.Role),
				"index":     i,
				"id":        call.ID,
				"name":      call.Name,
				"arguments": call.Arguments,
			})
		}
	}

	emit(EventRoleComplete, map[string]interface{}{
		"orchestration_id": hctx.OrchestrationID,
		"role":             string(resp.Role),
		"model":            resp.Model,
		"used_fallback":    resp.UsedFallback,
		"degraded":         resp.Degraded,
		"duration_ms":      resp.Duration.Milliseconds(),
		"total_tokens":     resp.Usage.TotalTokens,
		"cost_usd":         resp.CostUSD,
	})

	o.metrics.observeRole(resp)
	o.recordUsage(hctx, resp)
}

// runFallback executes the dedicated recovery role once with synthesis
// framing, then stops. A missing or disabled fallback role leaves the
// current candidate response in place.
func (o *Orchestrator) runFallback(ctx context.Context, req Request, cfg *MultiModelConfig, hctx *HandoffContext, result *OrchestrationResult, emit EmitFunc, logger *slog.Logger) error {
	fbCfg, ok := cfg.RoleConfig(RoleFallback)
	if !ok || !fbCfg.Enabled || fbCfg.Model == "" {
		logger.Warn("fallback requested but no fallback role configured")
		return nil
	}

	resp, err := o.executeRole(ctx, req, RoleFallback, fbCfg, hctx, emit, logger)
	if err != nil {
		return err
	}

	o.finishRole(result, hctx, resp, emit)
	if resp.Content != "" {
		result.FinalResponse = resp.Content
	}
	return nil
}

// recordUsage persists one role's token usage when a store is configured.
// Failures are logged, never fatal.
func (o *Orchestrator) recordUsage(hctx *HandoffContext, resp *RoleResponse) {
	if o.usageStore == nil {
		return
	}
	record := cost.UsageRecord{
		OrchestrationID: hctx.OrchestrationID,
		Role:            string(resp.Role),
		Provider:        resp.Provider,
		Model:           resp.Model,
		Duration:        resp.Duration,
		Usage:           resp.Usage,
		CostUSD:         resp.CostUSD,
	}
	if err := o.usageStore.Record(context.Background(), record); err != nil {
		o.logger.Warn("failed to record usage",
			log.String(log.OrchestrationIDKey, hctx.OrchestrationID),
			log.Error(err),
		)
	}
}

// roleNames converts roles to strings for event payloads.
func roleNames(roles []ModelRole) []string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return names
}
