// Package orchestration implements the multi-model orchestration engine:
// it decides whether a chat request should be serviced by one model or by a
// sequence of specialized role models, drives that sequence through a handoff
// state machine, reconciles streaming output into one response, and tracks
// cost, tokens, and timing per role.
package orchestration

// ModelRole identifies a functional stage a model fulfills within one
// orchestration. The set is closed; every consumption site switches
// exhaustively over it.
type ModelRole string

const (
	// RoleReasoning produces a structured analysis of the request before
	// any tool use or final answer.
	RoleReasoning ModelRole = "reasoning"

	// RoleToolExecution drives tool calls, carrying the tool-call-ID chain
	// forward across turns.
	RoleToolExecution ModelRole = "tool_execution"

	// RoleSynthesis produces the final user-facing response. Terminal.
	RoleSynthesis ModelRole = "synthesis"

	// RoleFallback is the recovery role invoked after repeated failures.
	// Terminal.
	RoleFallback ModelRole = "fallback"
)

// AllRoles returns every role in canonical execution order.
func AllRoles() []ModelRole {
	return []ModelRole{RoleReasoning, RoleToolExecution, RoleSynthesis, RoleFallback}
}

// Valid reports whether the role is a member of the closed set.
func (r ModelRole) Valid() bool {
	switch r {
	case RoleReasoning, RoleToolExecution, RoleSynthesis, RoleFallback:
		return true
	default:
		return false
	}
}

// Terminal reports whether the role ends the orchestration: no handoff is
// ever emitted after a terminal role completes.
func (r ModelRole) Terminal() bool {
	return r == RoleSynthesis || r == RoleFallback
}

// String implements fmt.Stringer.
func (r ModelRole) String() string {
	return string(r)
}
