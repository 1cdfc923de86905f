package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticwork/maestro/pkg/llm"
)

func TestAnalyzeRequest_ExpertQuery(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()

	decision := analyzer.AnalyzeRequest(
		userMessages("Analyze the security posture of this codebase in depth"),
		nil, nil, cfg,
	)

	assert.Equal(t, ComplexityExpert, decision.Analysis.Complexity)
	assert.True(t, decision.UseMultiModel)
	require.NotNil(t, decision.Plan)
	assert.Equal(t, []ModelRole{RoleReasoning, RoleSynthesis}, decision.Plan.Roles)
	assert.Positive(t, decision.Plan.EstimatedCostUSD)
	assert.Positive(t, decision.Plan.EstimatedDuration)
}

func TestAnalyzeRequest_SimpleQuery(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()

	decision := analyzer.AnalyzeRequest(userMessages("What is 2+2?"), nil, nil, cfg)

	assert.Equal(t, ComplexitySimple, decision.Analysis.Complexity)
	assert.False(t, decision.UseMultiModel)
	require.NotNil(t, decision.SingleModel)
	assert.Equal(t, cfg.Roles[RoleSynthesis].Model, decision.SingleModel.Model)
	assert.Nil(t, decision.Plan)
}

func TestAnalyzeRequest_Disabled(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()
	cfg.Enabled = false

	decision := analyzer.AnalyzeRequest(
		userMessages("Analyze the security posture of this codebase in depth"),
		nil, nil, cfg,
	)

	assert.False(t, decision.UseMultiModel)
	assert.Contains(t, decision.Reason, "disabled")
}

func TestAnalyzeRequest_Forced(t *testing.T) {
	analyzer := NewAnalyzer()

	t.Run("force_enabled flag", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ForceEnabled = true

		decision := analyzer.AnalyzeRequest(userMessages("hi"), nil, nil, cfg)
		assert.True(t, decision.UseMultiModel)
		assert.Contains(t, decision.Reason, "forced")
	})

	t.Run("runtime source", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source = SourceRuntime

		decision := analyzer.AnalyzeRequest(userMessages("hi"), nil, nil, cfg)
		assert.True(t, decision.UseMultiModel)
		assert.Contains(t, decision.Reason, "forced")
	})
}

func TestAnalyzeRequest_AlwaysTriggerPhrase(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()
	cfg.Routing.AlwaysTriggerPhrases = []string{"use all models"}

	decision := analyzer.AnalyzeRequest(userMessages("Please use all models for this"), nil, nil, cfg)
	assert.True(t, decision.UseMultiModel)
	assert.Contains(t, decision.Reason, "always-trigger")
}

func TestAnalyzeRequest_TriggerRule(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()
	cfg.Routing.TriggerRules = []string{`toolCount > 2`}

	tools := []llm.Tool{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	decision := analyzer.AnalyzeRequest(userMessages("hi"), tools, nil, cfg)
	assert.True(t, decision.UseMultiModel)
	assert.Contains(t, decision.Reason, "trigger rule")

	// A broken rule is treated as non-matching.
	cfg.Routing.TriggerRules = []string{`toolCount >`}
	decision = analyzer.AnalyzeRequest(userMessages("hi"), tools, nil, cfg)
	assert.False(t, decision.UseMultiModel)
}

func TestAnalyzeRequest_ComplexWithTools(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()

	tools := []llm.Tool{{Name: "web_search"}}
	decision := analyzer.AnalyzeRequest(
		userMessages("Explain the latest developments in quantum error correction and search for recent papers"),
		tools, nil, cfg,
	)

	assert.Equal(t, ComplexityComplex, decision.Analysis.Complexity)
	assert.True(t, decision.Analysis.RequiresTools)
	assert.True(t, decision.UseMultiModel)
	require.NotNil(t, decision.Plan)
	assert.Equal(t, []ModelRole{RoleReasoning, RoleToolExecution, RoleSynthesis}, decision.Plan.Roles)
}

func TestAnalyzeRequest_SliderOverride(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()
	cfg.Routing.ComplexityThreshold = 0.67

	// Complex query without tools stays single-model at a low slider.
	query := "Explain how garbage collection works in Go"
	low := 0.3
	decision := analyzer.AnalyzeRequest(userMessages(query), nil, &low, cfg)
	assert.Equal(t, ComplexityComplex, decision.Analysis.Complexity)
	assert.False(t, decision.UseMultiModel)

	high := 0.8
	decision = analyzer.AnalyzeRequest(userMessages(query), nil, &high, cfg)
	assert.True(t, decision.UseMultiModel)
}

func TestAnalyzeRequest_Pure(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()
	messages := userMessages("Analyze the architecture and audit the security posture of this service in depth")
	tools := []llm.Tool{{Name: "web_search"}}
	slider := 0.5

	first := analyzer.AnalyzeRequest(messages, tools, &slider, cfg)
	for i := 0; i < 5; i++ {
		again := analyzer.AnalyzeRequest(messages, tools, &slider, cfg)
		assert.Equal(t, first.UseMultiModel, again.UseMultiModel)
		assert.Equal(t, first.Reason, again.Reason)
		assert.Equal(t, first.Analysis.Complexity, again.Analysis.Complexity)
	}
}

func TestAnalyzeRequest_ModerateClassification(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()

	decision := analyzer.AnalyzeRequest(
		userMessages("Could you please tell me what the capital city of Australia is and also of New Zealand"),
		nil, nil, cfg,
	)
	assert.Equal(t, ComplexityModerate, decision.Analysis.Complexity)
	assert.False(t, decision.UseMultiModel)
}

func TestAnalyzeRequest_ToolsRequireAvailability(t *testing.T) {
	analyzer := NewAnalyzer()
	cfg := DefaultConfig()

	// Tool keywords without any available tools never require tools.
	decision := analyzer.AnalyzeRequest(
		userMessages("Search for the latest news about the election today"),
		nil, nil, cfg,
	)
	assert.False(t, decision.Analysis.RequiresTools)
}

func TestCountSentences(t *testing.T) {
	assert.Equal(t, 0, countSentences(""))
	assert.Equal(t, 1, countSentences("no terminator here"))
	assert.Equal(t, 3, countSentences("One. Two! Three?"))
}
