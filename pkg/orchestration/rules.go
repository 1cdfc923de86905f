package orchestration

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/agenticwork/maestro/pkg/errors"
)

// RuleSet evaluates admin-defined trigger rules against a task analysis.
// Rules are boolean expressions over the analysis fields, for example
// `complexity == "complex" && toolCount > 2`. Compiled programs are cached
// so repeated evaluations of the same rule are cheap.
type RuleSet struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// NewRuleSet creates an empty rule evaluator.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		cache: make(map[string]*vm.Program),
	}
}

// Match evaluates the given rules in order against the analysis and returns
// the first rule that evaluates to true, or "" when none match. A rule that
// fails to compile or evaluate is reported as an error rather than silently
// skipped, so broken admin rules surface immediately.
func (rs *RuleSet) Match(rules []string, analysis TaskAnalysis) (string, error) {
	if len(rules) == 0 {
		return "", nil
	}

	env := analysisEnv(analysis)

	for _, rule := range rules {
		matched, err := rs.evaluate(rule, env)
		if err != nil {
			return "", err
		}
		if matched {
			return rule, nil
		}
	}
	return "", nil
}

// evaluate runs one rule against the environment.
func (rs *RuleSet) evaluate(rule string, env map[string]interface{}) (bool, error) {
	if rule == "" {
		return false, nil
	}

	program, err := rs.compile(rule)
	if err != nil {
		return false, &errors.ValidationError{
			Field:      "trigger_rules",
			Message:    fmt.Sprintf("failed to compile rule %q: %s", rule, err.Error()),
			Suggestion: "check rule syntax; available fields: complexity, wordCount, sentenceCount, toolCount, requiresTools, requiresReasoning, estimatedTokens",
		}
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, &errors.ValidationError{
			Field:      "trigger_rules",
			Message:    fmt.Sprintf("rule %q evaluation failed: %s", rule, err.Error()),
			Suggestion: "verify that the rule only references task-analysis fields",
		}
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &errors.ValidationError{
			Field:      "trigger_rules",
			Message:    fmt.Sprintf("rule %q must return boolean, got %T", rule, result),
			Suggestion: "use comparison operators (==, !=, <, >) or boolean logic",
		}
	}

	return matched, nil
}

// compile compiles a rule and caches the program.
func (rs *RuleSet) compile(rule string) (*vm.Program, error) {
	rs.mu.RLock()
	if prog, ok := rs.cache[rule]; ok {
		rs.mu.RUnlock()
		return prog, nil
	}
	rs.mu.RUnlock()

	prog, err := expr.Compile(rule,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	rs.cache[rule] = prog
	rs.mu.Unlock()

	return prog, nil
}

// CacheSize returns the number of cached compiled rules.
func (rs *RuleSet) CacheSize() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.cache)
}

// analysisEnv exposes the task analysis to rule expressions.
func analysisEnv(analysis TaskAnalysis) map[string]interface{} {
	return map[string]interface{}{
		"complexity":        string(analysis.Complexity),
		"wordCount":         analysis.WordCount,
		"sentenceCount":     analysis.SentenceCount,
		"toolCount":         analysis.ToolCount,
		"requiresTools":     analysis.RequiresTools,
		"requiresReasoning": analysis.RequiresReasoning,
		"estimatedTokens":   analysis.EstimatedTokens,
	}
}
