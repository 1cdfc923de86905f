package orchestration

// Lifecycle event names emitted through the caller-supplied sink. The sink
// is invoked synchronously; a slow consumer naturally throttles chunk reads.
const (
	EventOrchestrationStart    = "orchestration_start"
	EventRoleStart             = "role_start"
	EventRoleThinking          = "role_thinking"
	EventRoleStream            = "role_stream"
	EventRoleToolCall          = "role_tool_call"
	EventRoleComplete          = "role_complete"
	EventHandoff               = "handoff"
	EventOrchestrationComplete = "orchestration_complete"
	EventOrchestrationError    = "orchestration_error"
)

// EmitFunc receives lifecycle events. Implementations must be safe for
// concurrent use when the same sink serves multiple orchestrations.
type EmitFunc func(event string, payload map[string]interface{})

// safeEmit returns an emit function that tolerates a nil sink.
func safeEmit(emit EmitFunc) EmitFunc {
	if emit == nil {
		return func(string, map[string]interface{}) {}
	}
	return emit
}
