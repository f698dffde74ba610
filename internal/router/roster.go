package router

import (
	"encoding/json"
	"log/slog"
)

// BroadcastRoster snapshots the committed display names and pushes them to
// every live session in registration order. The notice is marshaled once; a
// failed push to one recipient does not stop delivery to the rest. A rename
// that commits after the snapshot shows up in the next broadcast.
func (r *MessageRouter) BroadcastRoster() {
	notice := RosterNotice{Type: TypeUserlist, Users: r.registry.SnapshotNames()}
	frame, err := json.Marshal(notice)
	if err != nil {
		r.logger.Error("failed to marshal roster", slog.Any("error", err))
		return
	}
	r.broadcast(frame)
}

// broadcast pushes one frame to every live session.
func (r *MessageRouter) broadcast(frame []byte) {
	for _, sess := range r.registry.AllSessions() {
		r.push(sess, frame)
	}
}
