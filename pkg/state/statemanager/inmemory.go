// Package statemanager provides the in-memory session registry. All state is
// scoped to the process lifetime; nothing is persisted.
package statemanager

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Pir-CHILD/RTC-Learning/pkg/state"
)

// InMemoryRegistry keeps every live session behind one mutex. A single lock
// covers the session map, the display-name index, and the insertion-order
// slice, so a uniqueness check and its commit are one atomic step and no
// reader ever observes a torn name index. The lock is never held across a
// transport send.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*state.Session
	names    map[string]int64
	order    []int64 // registration order; drives roster and fan-out order

	logger *slog.Logger
}

func NewInMemoryRegistry(logger *slog.Logger) *InMemoryRegistry {
	return &InMemoryRegistry{
		sessions: make(map[int64]*state.Session),
		names:    make(map[string]int64),
		logger:   logger.With(slog.String("component", "session_registry")),
	}
}

// compile-time check to ensure InMemoryRegistry implements Registry.
var _ state.Registry = (*InMemoryRegistry)(nil)

func (r *InMemoryRegistry) Register(id int64, h state.Handle, ipAddr string) (*state.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return nil, state.ErrDuplicateID
	}
	sess := &state.Session{
		ID:        id,
		State:     state.StateConnecting,
		IPAddress: ipAddr,
		Transport: h,
		CreatedAt: time.Now(),
	}
	r.sessions[id] = sess
	r.order = append(r.order, id)
	r.logger.Debug("session registered", slog.Int64("clientID", id))
	return sess, nil
}

func (r *InMemoryRegistry) Deregister(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		// close may be reported more than once by the transport
		return false
	}
	delete(r.sessions, id)
	if sess.Name != "" {
		delete(r.names, sess.Name)
	}
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	sess.State = state.StateClosed
	r.logger.Debug("session deregistered", slog.Int64("clientID", id), slog.String("name", sess.Name))
	return true
}

func (r *InMemoryRegistry) Get(id int64) (*state.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *InMemoryRegistry) FindByName(name string) (*state.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[name]
	if !ok {
		return nil, false
	}
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *InMemoryRegistry) SetName(id int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return state.ErrUnknownSession
	}
	if holder, taken := r.names[name]; taken && holder != id {
		return state.ErrNameTaken
	}
	if sess.Name != "" {
		delete(r.names, sess.Name)
	}
	sess.Name = name
	sess.State = state.StateActive
	r.names[name] = id
	r.logger.Debug("display name committed", slog.Int64("clientID", id), slog.String("name", name))
	return nil
}

func (r *InMemoryRegistry) SetState(id int64, st state.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		sess.State = st
	}
}

func (r *InMemoryRegistry) SnapshotNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for _, id := range r.order {
		if sess := r.sessions[id]; sess != nil && sess.Name != "" {
			names = append(names, sess.Name)
		}
	}
	return names
}

func (r *InMemoryRegistry) AllSessions() []*state.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*state.Session, 0, len(r.sessions))
	for _, id := range r.order {
		if sess := r.sessions[id]; sess != nil {
			sessions = append(sessions, sess)
		}
	}
	return sessions
}

func (r *InMemoryRegistry) CountByIP(ipAddr string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sess := range r.sessions {
		if sess.IPAddress == ipAddr {
			count++
		}
	}
	return count
}

func (r *InMemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
