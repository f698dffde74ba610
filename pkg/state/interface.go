package state

import "errors"

var (
	// ErrDuplicateID means an identifier was registered twice. The allocator
	// contract makes this unreachable; the registry checks anyway.
	ErrDuplicateID = errors.New("session identifier already registered")
	// ErrUnknownSession means an operation referenced an identifier that is
	// not (or no longer) live.
	ErrUnknownSession = errors.New("unknown session identifier")
	// ErrNameTaken means another live session already holds the requested
	// display name.
	ErrNameTaken = errors.New("display name already in use")
)

// Handle pushes outbound frames to a single client's transport. Send must be
// safe for concurrent use and must fail, not block indefinitely, once the
// connection is gone.
type Handle interface {
	Send(frame []byte) error
	Close(err error)
}

// Registry is the authoritative set of live sessions, keyed by identifier
// and indexed by display name. All operations are atomic with respect to
// each other; in particular the uniqueness check inside SetName and its
// commit happen under one critical section. Implementations must never call
// Send on a Handle while holding their internal lock.
type Registry interface {
	// Register adds a session for the given identifier. ErrDuplicateID if
	// the identifier is already present.
	Register(id int64, h Handle, ipAddr string) (*Session, error)
	// Deregister removes the session and its name-index entry. Idempotent:
	// returns false, not an error, when the identifier is absent.
	Deregister(id int64) bool
	Get(id int64) (*Session, bool)
	FindByName(name string) (*Session, bool)
	// SetName atomically checks name uniqueness and commits the name to the
	// session, releasing any name the session held before. ErrNameTaken when
	// a different live session holds the name, ErrUnknownSession when the
	// identifier is absent.
	SetName(id int64, name string) error
	SetState(id int64, st SessionState)
	// SnapshotNames returns the current display names in registration order,
	// sessions without a name excluded.
	SnapshotNames() []string
	// AllSessions returns the live sessions in registration order for
	// broadcast fan-out.
	AllSessions() []*Session
	CountByIP(ipAddr string) int
	Len() int
}
