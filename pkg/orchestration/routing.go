package orchestration

import (
	"fmt"
	"strings"
	"time"

	"github.com/agenticwork/maestro/pkg/llm"
	"github.com/agenticwork/maestro/pkg/llm/pricing"
)

// Complexity is the classification tier assigned to a request.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityExpert   Complexity = "expert"
)

// TaskAnalysis is the snapshot of request characteristics the routing
// decision is based on.
type TaskAnalysis struct {
	Complexity        Complexity `json:"complexity"`
	RequiresReasoning bool       `json:"requires_reasoning"`
	RequiresTools     bool       `json:"requires_tools"`
	ToolCount         int        `json:"tool_count"`
	EstimatedTokens   int        `json:"estimated_tokens"`
	WordCount         int        `json:"word_count"`
	SentenceCount     int        `json:"sentence_count"`
}

// ExecutionPlan is the ordered role list selected for an orchestration,
// with planning-time estimates.
type ExecutionPlan struct {
	Roles             []ModelRole   `json:"roles"`
	EstimatedCostUSD  float64       `json:"estimated_cost_usd"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// SingleModelSpec describes the single-model path taken when multi-model
// routing is off.
type SingleModelSpec struct {
	Model    string `json:"model"`
	Provider string `json:"provider,omitempty"`
}

// RoutingDecision is the analyzer's verdict for one request.
type RoutingDecision struct {
	UseMultiModel bool             `json:"use_multi_model"`
	Reason        string           `json:"reason"`
	Plan          *ExecutionPlan   `json:"plan,omitempty"`
	SingleModel   *SingleModelSpec `json:"single_model,omitempty"`
	Analysis      TaskAnalysis     `json:"analysis"`
}

// Keyword sets for complexity classification. Matching is case-insensitive
// substring search over the latest user message.
var (
	expertIndicators = []string{
		"analyze", "analyse", "audit", "architecture", "security posture",
		"in depth", "in-depth", "comprehensive", "thorough", "assess",
		"evaluate", "deep dive", "trade-off", "tradeoff",
	}

	complexIndicators = []string{
		"explain", "implement", "design", "refactor", "optimize", "optimise",
		"compare", "debug", "why does", "how would", "step by step",
	}

	toolIndicators = []string{
		"search", "fetch", "latest", "current", "look up", "lookup", "find",
		"browse", "today", "news", "retrieve", "download", "run",
	}
)

// Static planning-time rates per role, USD per million tokens and expected
// wall-clock duration. Illustrative figures for plan comparison, not billing.
var (
	planRolePricePerMillion = map[ModelRole]float64{
		RoleReasoning:     15.00,
		RoleToolExecution: 3.00,
		RoleSynthesis:     3.00,
		RoleFallback:      1.00,
	}

	planRoleDuration = map[ModelRole]time.Duration{
		RoleReasoning:     8 * time.Second,
		RoleToolExecution: 5 * time.Second,
		RoleSynthesis:     4 * time.Second,
		RoleFallback:      3 * time.Second,
	}
)

// Analyzer classifies requests and decides between single-model and
// multi-model execution. AnalyzeRequest is pure: identical inputs always
// produce identical decisions. The embedded rule cache only memoizes
// compilation and never affects results.
type Analyzer struct {
	rules *RuleSet
}

// NewAnalyzer creates a routing analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{rules: NewRuleSet()}
}

// AnalyzeRequest classifies the request and applies the decision precedence:
// disabled, forced, always-trigger phrase, trigger rule, expert complexity,
// complex with tools, slider override. First match wins.
func (a *Analyzer) AnalyzeRequest(messages []llm.Message, tools []llm.Tool, slider *float64, cfg *MultiModelConfig) RoutingDecision {
	query := latestUserQuery(messages)
	analysis := a.analyzeTask(query, messages, tools)

	decision := RoutingDecision{Analysis: analysis}

	if cfg == nil || !cfg.Enabled {
		decision.Reason = "multi-model routing disabled"
		decision.SingleModel = singleModelFrom(cfg)
		return decision
	}

	forced := cfg.ForceEnabled || cfg.Source == SourceRuntime

	switch {
	case forced:
		decision.UseMultiModel = true
		decision.Reason = "forced by admin configuration"

	case matchPhrase(query, cfg.Routing.AlwaysTriggerPhrases) != "":
		decision.UseMultiModel = true
		decision.Reason = fmt.Sprintf("always-trigger phrase matched: %q", matchPhrase(query, cfg.Routing.AlwaysTriggerPhrases))

	case a.matchRule(cfg.Routing.TriggerRules, analysis) != "":
		decision.UseMultiModel = true
		decision.Reason = fmt.Sprintf("trigger rule matched: %q", a.matchRule(cfg.Routing.TriggerRules, analysis))

	case analysis.Complexity == ComplexityExpert:
		decision.UseMultiModel = true
		decision.Reason = "expert-level complexity"

	case analysis.Complexity == ComplexityComplex && analysis.RequiresTools:
		decision.UseMultiModel = true
		decision.Reason = "complex query requiring tools"

	case slider != nil && *slider >= cfg.Routing.ComplexityThreshold && analysis.Complexity == ComplexityComplex:
		decision.UseMultiModel = true
		decision.Reason = fmt.Sprintf("slider position %.2f at complex complexity", *slider)

	default:
		decision.Reason = fmt.Sprintf("complexity %s below multi-model threshold", analysis.Complexity)
		decision.SingleModel = singleModelFrom(cfg)
		return decision
	}

	decision.Plan = buildPlan(analysis)
	return decision
}

// analyzeTask classifies one query's complexity and tool needs.
func (a *Analyzer) analyzeTask(query string, messages []llm.Message, tools []llm.Tool) TaskAnalysis {
	lower := strings.ToLower(query)
	words := len(strings.Fields(query))
	sentences := countSentences(query)

	expertHits := countMatches(lower, expertIndicators)
	complexHits := countMatches(lower, complexIndicators)

	var complexity Complexity
	switch {
	// A single expert indicator in a long query, or several expert
	// indicators regardless of length.
	case expertHits >= 2 || (expertHits >= 1 && words >= 20):
		complexity = ComplexityExpert
	case complexHits >= 1 || expertHits >= 1 || words >= 50 || sentences > 3:
		complexity = ComplexityComplex
	case words >= 15 || sentences > 2:
		complexity = ComplexityModerate
	default:
		complexity = ComplexitySimple
	}

	requiresTools := len(tools) > 0 && countMatches(lower, toolIndicators) > 0

	estimated := 0
	for _, msg := range messages {
		estimated += pricing.EstimateTokensFromText(msg.Content)
	}

	return TaskAnalysis{
		Complexity:        complexity,
		RequiresReasoning: complexity == ComplexityComplex || complexity == ComplexityExpert,
		RequiresTools:     requiresTools,
		ToolCount:         len(tools),
		EstimatedTokens:   estimated,
		WordCount:         words,
		SentenceCount:     sentences,
	}
}

// matchRule returns the first trigger rule matching the analysis. Broken
// rules are treated as non-matching here; callers that need to validate
// rules use RuleSet.Match directly.
func (a *Analyzer) matchRule(rules []string, analysis TaskAnalysis) string {
	matched, err := a.rules.Match(rules, analysis)
	if err != nil {
		return ""
	}
	return matched
}

// buildPlan selects the role sequence for the analysis: reasoning when the
// task needs it, tool execution when tools are required, synthesis always
// last. Estimates sum static per-role rates scaled by estimated tokens.
func buildPlan(analysis TaskAnalysis) *ExecutionPlan {
	var roles []ModelRole
	if analysis.RequiresReasoning {
		roles = append(roles, RoleReasoning)
	}
	if analysis.RequiresTools {
		roles = append(roles, RoleToolExecution)
	}
	roles = append(roles, RoleSynthesis)

	plan := &ExecutionPlan{Roles: roles}
	for _, role := range roles {
		plan.EstimatedCostUSD += planRolePricePerMillion[role] * float64(analysis.EstimatedTokens) / 1_000_000.0
		plan.EstimatedDuration += planRoleDuration[role]
	}
	return plan
}

// singleModelFrom derives the single-model fallback spec from the synthesis
// role configuration.
func singleModelFrom(cfg *MultiModelConfig) *SingleModelSpec {
	if cfg == nil {
		return &SingleModelSpec{}
	}
	roleCfg := cfg.Roles[RoleSynthesis]
	return &SingleModelSpec{
		Model:    roleCfg.Model,
		Provider: roleCfg.Provider,
	}
}

// latestUserQuery returns the content of the most recent user message.
func latestUserQuery(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.MessageRoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// matchPhrase returns the first phrase contained in the query, or "".
func matchPhrase(query string, phrases []string) string {
	lower := strings.ToLower(query)
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase
		}
	}
	return ""
}

// countMatches counts how many indicators appear in the text.
func countMatches(lower string, indicators []string) int {
	count := 0
	for _, indicator := range indicators {
		if strings.Contains(lower, indicator) {
			count++
		}
	}
	return count
}

// countSentences counts sentence terminators, with a minimum of one for
// non-empty text.
func countSentences(text string) int {
	count := 0
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			count++
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		count = 1
	}
	return count
}
