// Package policy holds the per-entity authorization predicates. Policies are
// pure functions of the actor (possibly nil), the target entity, and any
// precomputed relationship state; callers look up block or report state
// before asking.
package policy

// Response is an allow/deny decision, optionally carrying a human-readable
// deny reason for UX display.
type Response struct {
	Allowed bool
	Message string
}

// Allow grants the action.
func Allow() Response {
	return Response{Allowed: true}
}

// Deny refuses the action with a reason.
func Deny(message string) Response {
	return Response{Allowed: false, Message: message}
}

// DenyQuiet refuses the action with no specific reason.
func DenyQuiet() Response {
	return Response{Allowed: false}
}
