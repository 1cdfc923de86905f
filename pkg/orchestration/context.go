package orchestration

import (
	"time"

	"github.com/agenticwork/maestro/pkg/llm"
)

// HandoffContext is the single mutable artifact of one orchestration run.
// It is created once per orchestration, owned by exactly one in-flight run,
// and discarded when the orchestration returns. It must never be shared
// across concurrent orchestrations.
type HandoffContext struct {
	// OrchestrationID identifies the run.
	OrchestrationID string

	// CurrentRole is the role currently (or most recently) executing.
	CurrentRole ModelRole

	// HandoffCount increases monotonically, bounded by the configured
	// maximum. Checked before each role executes.
	HandoffCount int

	// ReasoningOutput accumulates the reasoning role's analysis.
	ReasoningOutput string

	// ToolOutput accumulates textual output from the tool execution role.
	ToolOutput string

	// ToolCalls is the append-only record of every tool call observed.
	ToolCalls []ToolCallRecord

	// ToolCallChain holds the tool-call IDs in order, carried into
	// tool-execution messages for multi-turn continuity.
	ToolCallChain []string

	// SynthesisInput stages content handed to the synthesis role.
	SynthesisInput string

	// Errors is the append-only error log.
	Errors []ExecutionError

	// CostBreakdown holds exactly one entry per role that actually
	// executed, always overwritten with the latest attempt's figures.
	CostBreakdown map[ModelRole]RoleCost

	// RoleTimings holds start/end timestamps per executed role.
	RoleTimings map[ModelRole]RoleTiming
}

// ToolCallRecord captures one tool invocation observed during a run.
type ToolCallRecord struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Model     string        `json:"model"`
	Provider  string        `json:"provider,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// RoleCost is the cost breakdown entry for one executed role.
type RoleCost struct {
	Model    string         `json:"model"`
	Provider string         `json:"provider,omitempty"`
	Usage    llm.TokenUsage `json:"usage"`
	CostUSD  float64        `json:"cost_usd"`
}

// RoleTiming holds wall-clock bounds for one role execution, including any
// fallback retry.
type RoleTiming struct {
	Start time.Time
	End   time.Time
}

// Duration returns the measured role duration, zero if still running.
func (t RoleTiming) Duration() time.Duration {
	if t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

// ExecutionError is one entry in the run's error log.
type ExecutionError struct {
	Role      ModelRole `json:"role"`
	Model     string    `json:"model"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
}

// OrchestrationResult is what a completed orchestration returns.
type OrchestrationResult struct {
	// OrchestrationID identifies the run.
	OrchestrationID string `json:"orchestration_id"`

	// FinalResponse is the user-facing text produced by the last role with
	// textual output.
	FinalResponse string `json:"final_response"`

	// ToolCalls lists every tool call in execution order.
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// RolesExecuted lists the roles that actually ran, in order.
	RolesExecuted []ModelRole `json:"roles_executed"`

	// HandoffCount is the number of role transitions that occurred.
	HandoffCount int `json:"handoff_count"`

	// CostBreakdown maps each executed role to its cost figures.
	CostBreakdown map[ModelRole]RoleCost `json:"cost_breakdown"`

	// Totals aggregated over the cost breakdown and role timings.
	TotalUsage    llm.TokenUsage `json:"total_usage"`
	TotalCostUSD  float64        `json:"total_cost_usd"`
	TotalDuration time.Duration  `json:"total_duration"`
}
