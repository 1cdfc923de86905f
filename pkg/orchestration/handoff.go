package orchestration

import (
	"fmt"
	"strings"
	"time"

	"github.com/agenticwork/maestro/pkg/llm"
)

// NextAction is what the controller decides after a role completes.
type NextAction string

const (
	// ActionComplete ends the orchestration with the current candidate
	// response.
	ActionComplete NextAction = "complete"

	// ActionHandoff transfers execution to the next role.
	ActionHandoff NextAction = "handoff"

	// ActionFallback invokes the dedicated recovery role once, then stops.
	ActionFallback NextAction = "fallback"
)

// HandoffDecision is the controller's verdict after one role execution.
type HandoffDecision struct {
	Action   NextAction
	NextRole ModelRole
	Reason   string
}

// Role-specific system preambles. The caller's own system prompt is
// appended after these.
const (
	reasoningPreamble = "You are the reasoning stage of a multi-model pipeline. " +
		"Produce a structured analysis of the request: break it down, identify what " +
		"information or actions are needed, and outline an approach. Do not write " +
		"the final answer for the user."

	toolExecutionPreamble = "You are the tool execution stage of a multi-model pipeline. " +
		"Use the available tools to gather the information identified by the prior " +
		"analysis. Prefer tool calls over answering from memory."

	synthesisPreamble = "You are the synthesis stage of a multi-model pipeline. " +
		"Write the final response for the user, drawing on the prior analysis and " +
		"tool results provided. Answer directly and completely."
)

// HandoffController owns all mutation of the per-run HandoffContext:
// creating it, building role-specific message views from it, deciding the
// next action after each role, folding role output back in on handoff, and
// aggregating totals. A controller holds no per-run state of its own, so one
// instance serves concurrent orchestrations.
type HandoffController struct{}

// NewHandoffController creates a controller.
func NewHandoffController() *HandoffController {
	return &HandoffController{}
}

// CreateInitialContext returns a fresh context with zeroed counters.
func (h *HandoffController) CreateInitialContext(orchestrationID string) *HandoffContext {
	return &HandoffContext{
		OrchestrationID: orchestrationID,
		CostBreakdown:   make(map[ModelRole]RoleCost),
		RoleTimings:     make(map[ModelRole]RoleTiming),
	}
}

// BuildMessages dispatches to the role-appropriate message builder. The
// fallback role uses synthesis framing: it answers the user directly from
// whatever context survived.
func (h *HandoffController) BuildMessages(role ModelRole, original []llm.Message, hctx *HandoffContext, systemPrompt string) []llm.Message {
	switch role {
	case RoleReasoning:
		return h.BuildReasoningMessages(original, hctx, systemPrompt)
	case RoleToolExecution:
		return h.BuildToolExecutionMessages(original, hctx, systemPrompt)
	case RoleSynthesis, RoleFallback:
		return h.BuildSynthesisMessages(original, hctx, systemPrompt)
	default:
		return original
	}
}

// BuildReasoningMessages frames the original conversation for the
// reasoning role.
func (h *HandoffController) BuildReasoningMessages(original []llm.Message, _ *HandoffContext, systemPrompt string) []llm.Message {
	messages := []llm.Message{{
		Role:    llm.MessageRoleSystem,
		Content: joinSystem(reasoningPreamble, systemPrompt),
	}}
	return append(messages, withoutSystem(original)...)
}

// BuildToolExecutionMessages frames the conversation for the tool execution
// role: prior reasoning is surfaced as an assistant turn, and the running
// tool-call-ID chain is replayed so multi-turn tool continuity is preserved.
func (h *HandoffController) BuildToolExecutionMessages(original []llm.Message, hctx *HandoffContext, systemPrompt string) []llm.Message {
	messages := []llm.Message{{
		Role:    llm.MessageRoleSystem,
		Content: joinSystem(toolExecutionPreamble, systemPrompt),
	}}
	messages = append(messages, withoutSystem(original)...)

	if hctx.ReasoningOutput != "" {
		messages = append(messages, llm.Message{
			Role:    llm.MessageRoleAssistant,
			Content: "Analysis of the request:\n" + hctx.ReasoningOutput,
		})
	}

	// Replay the tool-call chain: each prior call as an assistant tool-call
	// turn followed by its result turn, keyed by the original call ID.
	for _, record := range hctx.ToolCalls {
		messages = append(messages, llm.Message{
			Role: llm.MessageRoleAssistant,
			ToolCalls: []llm.ToolCall{{
				ID:        record.ID,
				Name:      record.Name,
				Arguments: record.Arguments,
			}},
		})
		result := record.Result
		if result == "" && record.Error != "" {
			result = "error: " + record.Error
		}
		messages = append(messages, llm.Message{
			Role:       llm.MessageRoleTool,
			Content:    result,
			ToolCallID: record.ID,
			Name:       record.Name,
		})
	}

	return messages
}

// BuildSynthesisMessages folds prior reasoning output and tool results into
// the prompt for the synthesis (or fallback) role.
func (h *HandoffController) BuildSynthesisMessages(original []llm.Message, hctx *HandoffContext, systemPrompt string) []llm.Message {
	messages := []llm.Message{{
		Role:    llm.MessageRoleSystem,
		Content: joinSystem(synthesisPreamble, systemPrompt),
	}}
	messages = append(messages, withoutSystem(original)...)

	var folded strings.Builder
	if hctx.ReasoningOutput != "" {
		folded.WriteString("Prior analysis:\n")
		folded.WriteString(hctx.ReasoningOutput)
		folded.WriteString("\n\n")
	}
	if len(hctx.ToolCalls) > 0 {
		folded.WriteString("Tool results:\n")
		for _, record := range hctx.ToolCalls {
			folded.WriteString(fmt.Sprintf("- %s(%s)", record.Name, record.Arguments))
			if record.Result != "" {
				folded.WriteString(" -> " + record.Result)
			} else if record.Error != "" {
				folded.WriteString(" -> error: " + record.Error)
			}
			folded.WriteString("\n")
		}
		folded.WriteString("\n")
	}
	if hctx.ToolOutput != "" {
		folded.WriteString("Tool stage notes:\n")
		folded.WriteString(hctx.ToolOutput)
		folded.WriteString("\n\n")
	}
	if hctx.SynthesisInput != "" {
		folded.WriteString(hctx.SynthesisInput)
		folded.WriteString("\n")
	}

	if folded.Len() > 0 {
		messages = append(messages, llm.Message{
			Role:    llm.MessageRoleUser,
			Content: "Context from earlier stages:\n\n" + folded.String(),
		})
	}

	return messages
}

// DetermineNextAction decides what happens after a role completes, from the
// role's own hint, its finish reason, unresolved tool calls, and the
// remaining handoff budget.
func (h *HandoffController) DetermineNextAction(resp *RoleResponse, hctx *HandoffContext, maxHandoffs int) HandoffDecision {
	if resp.Degraded {
		return HandoffDecision{Action: ActionFallback, Reason: "role execution failed after fallback retry"}
	}
	if resp.NextAction == ActionFallback {
		return HandoffDecision{Action: ActionFallback, Reason: "role requested fallback"}
	}
	if resp.NextAction == ActionComplete || resp.Role.Terminal() {
		return HandoffDecision{Action: ActionComplete, Reason: "terminal role completed"}
	}
	if hctx.HandoffCount >= maxHandoffs {
		return HandoffDecision{Action: ActionComplete, Reason: "handoff budget exhausted"}
	}

	// Unresolved tool calls route to the tool execution stage; anything
	// else proceeds to synthesis.
	switch resp.Role {
	case RoleReasoning:
		if resp.FinishReason == llm.FinishReasonToolCalls || len(resp.ToolCalls) > 0 {
			return HandoffDecision{Action: ActionHandoff, NextRole: RoleToolExecution, Reason: "reasoning produced tool calls"}
		}
		return HandoffDecision{Action: ActionHandoff, NextRole: RoleSynthesis, Reason: "reasoning complete"}
	case RoleToolExecution:
		return HandoffDecision{Action: ActionHandoff, NextRole: RoleSynthesis, Reason: "tool execution complete"}
	default:
		return HandoffDecision{Action: ActionComplete, Reason: "no further roles"}
	}
}

// PrepareHandoff increments the handoff counter and folds the completed
// role's output into the context slot the next role will read.
func (h *HandoffController) PrepareHandoff(hctx *HandoffContext, resp *RoleResponse, nextRole ModelRole) {
	hctx.HandoffCount++
	hctx.CurrentRole = nextRole

	switch resp.Role {
	case RoleReasoning:
		output := resp.Content
		if output == "" {
			output = resp.Thinking
		}
		hctx.ReasoningOutput = output
	case RoleToolExecution:
		if resp.Content != "" {
			if hctx.ToolOutput != "" {
				hctx.ToolOutput += "\n"
			}
			hctx.ToolOutput += resp.Content
		}
	case RoleSynthesis, RoleFallback:
		hctx.SynthesisInput = resp.Content
	}
}

// RecordToolCalls appends the role's tool calls to the context's append-only
// record and extends the tool-call-ID chain.
func (h *HandoffController) RecordToolCalls(hctx *HandoffContext, resp *RoleResponse) {
	now := time.Now()
	for _, call := range resp.ToolCalls {
		hctx.ToolCalls = append(hctx.ToolCalls, ToolCallRecord{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: call.Arguments,
			Model:     resp.Model,
			Provider:  resp.Provider,
			Duration:  resp.Duration,
			Timestamp: now,
		})
		hctx.ToolCallChain = append(hctx.ToolCallChain, call.ID)
	}
}

// RecordError appends to the run's error log.
func (h *HandoffController) RecordError(hctx *HandoffContext, role ModelRole, model, message string, retryable bool) {
	hctx.Errors = append(hctx.Errors, ExecutionError{
		Role:      role,
		Model:     model,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: retryable,
	})
}

// TotalTokens aggregates usage over the cost breakdown.
func (h *HandoffController) TotalTokens(hctx *HandoffContext) llm.TokenUsage {
	var total llm.TokenUsage
	for _, entry := range hctx.CostBreakdown {
		total = total.Add(entry.Usage)
	}
	return total
}

// TotalCost aggregates cost over the cost breakdown.
func (h *HandoffController) TotalCost(hctx *HandoffContext) float64 {
	total := 0.0
	for _, entry := range hctx.CostBreakdown {
		total += entry.CostUSD
	}
	return total
}

// TotalDuration sums measured role durations.
func (h *HandoffController) TotalDuration(hctx *HandoffContext) time.Duration {
	var total time.Duration
	for _, timing := range hctx.RoleTimings {
		total += timing.Duration()
	}
	return total
}

// joinSystem concatenates the role preamble with the caller's system prompt.
func joinSystem(preamble, systemPrompt string) string {
	if systemPrompt == "" {
		return preamble
	}
	return preamble + "\n\n" + systemPrompt
}

// withoutSystem strips system messages from the original conversation; role
// framing supplies its own.
func withoutSystem(messages []llm.Message) []llm.Message {
	filtered := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != llm.MessageRoleSystem {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}
