package model

// SessionStatus is the membership status of a connection. Transitions only
// move forward: Pending → Active → Closed.
type SessionStatus int

const (
	SessionPending SessionStatus = iota // connected, handshake not completed
	SessionActive                       // AccountInfo received
	SessionClosed                       // terminal
)

func (s SessionStatus) String() string {
	switch s {
	case SessionPending:
		return "pending"
	case SessionActive:
		return "active"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next respects the ordering.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	return next > s && next <= SessionClosed
}
