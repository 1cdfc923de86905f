package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticwork/maestro/pkg/errors"
)

func TestRuleSetMatch(t *testing.T) {
	analysis := TaskAnalysis{
		Complexity:        ComplexityComplex,
		WordCount:         30,
		SentenceCount:     2,
		ToolCount:         4,
		RequiresTools:     true,
		RequiresReasoning: true,
		EstimatedTokens:   120,
	}

	tests := []struct {
		name  string
		rules []string
		want  string
	}{
		{
			name:  "first matching rule wins",
			rules: []string{`complexity == "simple"`, `toolCount > 2`, `wordCount > 10`},
			want:  `toolCount > 2`,
		},
		{
			name:  "no match",
			rules: []string{`complexity == "expert"`, `wordCount > 100`},
			want:  "",
		},
		{
			name:  "boolean fields",
			rules: []string{`requiresTools && requiresReasoning`},
			want:  `requiresTools && requiresReasoning`,
		},
		{
			name:  "empty rule list",
			rules: nil,
			want:  "",
		},
	}

	rs := NewRuleSet()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := rs.Match(tt.rules, analysis)
			require.NoError(t, err)
			assert.Equal(t, tt.want, matched)
		})
	}
}

func TestRuleSetMatch_CompileError(t *testing.T) {
	rs := NewRuleSet()

	_, err := rs.Match([]string{`complexity ==`}, TaskAnalysis{})
	var valErr *errors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "trigger_rules", valErr.Field)
	assert.NotEmpty(t, valErr.Suggestion)
}

func TestRuleSet_CachesCompiledPrograms(t *testing.T) {
	rs := NewRuleSet()
	analysis := TaskAnalysis{WordCount: 5}

	for i := 0; i < 3; i++ {
		_, err := rs.Match([]string{`wordCount > 3`, `wordCount > 10`}, analysis)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, rs.CacheSize())
}

func TestRuleSet_UndefinedVariableIsFalsy(t *testing.T) {
	rs := NewRuleSet()

	// Unknown identifiers are allowed so configs can reference fields from
	// newer engine versions without breaking older ones.
	matched, err := rs.Match([]string{`futureField == "x"`}, TaskAnalysis{})
	require.NoError(t, err)
	assert.Equal(t, "", matched)
}
