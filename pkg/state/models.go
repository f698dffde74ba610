package state

import (
	"time"
)

// SessionState tracks where a connection is in its lifecycle.
type SessionState int

const (
	// StateConnecting: transport accepted, identity notice not yet sent.
	StateConnecting SessionState = iota
	// StateIdentified: identity notice sent, no display name yet.
	StateIdentified
	// StateActive: display name committed at least once.
	StateActive
	// StateClosed: terminal, registry entry removed.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentified:
		return "identified"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the server-side record for one connected client. The registry
// owns every live Session; other components only hold one for the duration
// of a single dispatch.
type Session struct {
	ID        int64
	Name      string // empty until the client registers a display name
	State     SessionState
	IPAddress string
	Transport Handle // owned for the session's lifetime, never shared
	CreatedAt time.Time
}
