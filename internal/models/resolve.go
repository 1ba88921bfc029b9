package models

// ResolveState is the terminal state of a redirect attempt.
type ResolveState int

const (
	StateRedirect ResolveState = iota
	StateNotFound
	StateExpired
	StateLimitReached
)

func (s ResolveState) String() string {
	switch s {
	case StateRedirect:
		return "redirect"
	case StateNotFound:
		return "not_found"
	case StateExpired:
		return "expired"
	case StateLimitReached:
		return "limit_reached"
	default:
		return "unknown"
	}
}

// Outcome is what the resolver decided. Target is set only for StateRedirect.
type Outcome struct {
	State  ResolveState
	Target string
}
