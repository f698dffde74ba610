// Package router dispatches inbound relay frames: it runs the rename
// protocol, acknowledges diagnostic reports, forwards opaque signaling
// payloads, and keeps every client's roster view in sync.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Pir-CHILD/RTC-Learning/pkg/config"
	"github.com/Pir-CHILD/RTC-Learning/pkg/state"
)

// MessageRouter consumes one connection's inbound frames at a time and
// consults the shared session registry for every routing decision. Safe for
// concurrent use by many connection workers.
type MessageRouter struct {
	logger         *slog.Logger
	registry       state.Registry
	forwardUnknown bool
}

func NewMessageRouter(logger *slog.Logger, registry state.Registry, cfg config.RelayConfig) *MessageRouter {
	return &MessageRouter{
		logger:         logger.With(slog.String("component", "message_router")),
		registry:       registry,
		forwardUnknown: cfg.ForwardUnknown,
	}
}

// HandleConnect sends the identity notice to a freshly registered session
// and advances it to the identified state.
func (r *MessageRouter) HandleConnect(clientID int64) {
	sess, ok := r.registry.Get(clientID)
	if !ok {
		r.logger.Error("connect for unknown session", slog.Int64("clientID", clientID))
		return
	}
	r.sendTo(sess, IDNotice{Type: TypeID, ID: clientID})
	r.registry.SetState(clientID, state.StateIdentified)
	ConnectedSessions.Set(float64(r.registry.Len()))
}

// HandleMessage dispatches one inbound frame for the given session. A frame
// that cannot be parsed, or that is missing a required field for its type,
// is logged and dropped; the connection stays open.
func (r *MessageRouter) HandleMessage(_ context.Context, clientID int64, frame []byte) {
	start := time.Now()
	kind := "malformed"
	defer func() {
		MessagesTotal.WithLabelValues(kind).Inc()
		DispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if !gjson.ValidBytes(frame) {
		r.logger.Warn("dropping unparseable frame", slog.Int64("clientID", clientID))
		return
	}
	typ := gjson.GetBytes(frame, "type")
	if typ.Type != gjson.String {
		r.logger.Warn("dropping frame without type discriminator", slog.Int64("clientID", clientID))
		return
	}

	switch typ.String() {
	case TypeUsername:
		kind = "username"
		r.handleRename(clientID, frame)
	case TypeInfo:
		kind = "info"
		r.handleInfo(clientID, frame)
	default:
		kind = "forward"
		r.handleUnknown(clientID, frame, typ.String())
	}
}

// HandleDisconnect removes the session and tells everyone left about the new
// roster. Idempotent: the transport may report close more than once.
func (r *MessageRouter) HandleDisconnect(clientID int64) {
	if !r.registry.Deregister(clientID) {
		return
	}
	ConnectedSessions.Set(float64(r.registry.Len()))
	r.BroadcastRoster()
}

// handleRename runs the rename protocol: atomically check-and-commit the
// requested name, answer the requester alone, and broadcast the roster only
// on success. First-name registration and later renames take the same path.
func (r *MessageRouter) handleRename(clientID int64, frame []byte) {
	name := gjson.GetBytes(frame, "name")
	if name.Type != gjson.String || name.String() == "" {
		r.logger.Warn("dropping rename request without name", slog.Int64("clientID", clientID))
		return
	}
	requested := name.String()

	sess, ok := r.registry.Get(clientID)
	if !ok {
		r.logger.Error("rename for unknown session", slog.Int64("clientID", clientID))
		return
	}

	err := r.registry.SetName(clientID, requested)
	switch {
	case err == nil:
		r.sendTo(sess, UsernameResult{
			Type: TypeUsername,
			Name: requested,
			Code: CodeNameChanged,
			Info: "Username changed.",
		})
		r.logger.Info("display name changed", slog.Int64("clientID", clientID), slog.String("name", requested))
		r.BroadcastRoster()
	case errors.Is(err, state.ErrNameTaken):
		r.sendTo(sess, UsernameResult{
			Type: TypeUsername,
			Name: requested,
			Code: CodeNameConflict,
			Info: "Username repeat, please send a new one.",
		})
		r.logger.Info("display name rejected", slog.Int64("clientID", clientID), slog.String("name", requested))
	default:
		r.logger.Error("rename failed", slog.Int64("clientID", clientID), slog.Any("error", err))
	}
}

// handleInfo logs a client's diagnostic report and acknowledges it to the
// sender alone.
func (r *MessageRouter) handleInfo(clientID int64, frame []byte) {
	cpu := gjson.GetBytes(frame, "cpu")
	gpu := gjson.GetBytes(frame, "gpu")
	memory := gjson.GetBytes(frame, "memory")
	if !cpu.Exists() || !gpu.Exists() || !memory.Exists() {
		r.logger.Warn("dropping incomplete diagnostic report", slog.Int64("clientID", clientID))
		return
	}

	sess, ok := r.registry.Get(clientID)
	if !ok {
		r.logger.Error("diagnostic report for unknown session", slog.Int64("clientID", clientID))
		return
	}

	r.logger.Info("client diagnostics",
		slog.Int64("clientID", clientID),
		slog.String("cpu", cpu.String()),
		slog.String("gpu", gpu.String()),
		slog.String("memory", memory.String()),
	)
	r.sendTo(sess, InfoAck{Type: TypeInfo, Code: CodeInfoAck, Info: "OK"})
}

// handleUnknown relays a frame the router does not interpret. The frame is
// forwarded verbatim so extension fields ride through untouched: to the
// session named by its target field when present, to everyone otherwise.
func (r *MessageRouter) handleUnknown(clientID int64, frame []byte, typ string) {
	if !r.forwardUnknown {
		r.logger.Debug("dropping frame with unrecognized type",
			slog.Int64("clientID", clientID), slog.String("type", typ))
		return
	}

	target := gjson.GetBytes(frame, "target")
	if target.Type == gjson.String && target.String() != "" {
		sess, ok := r.registry.FindByName(target.String())
		if !ok {
			r.logger.Warn("dropping frame for unknown target",
				slog.Int64("clientID", clientID), slog.String("target", target.String()))
			return
		}
		r.push(sess, frame)
		return
	}
	r.broadcast(frame)
}

// sendTo marshals a notice and pushes it to one session.
func (r *MessageRouter) sendTo(sess *state.Session, notice any) {
	frame, err := json.Marshal(notice)
	if err != nil {
		r.logger.Error("failed to marshal notice", slog.Any("error", err))
		return
	}
	r.push(sess, frame)
}

// push delivers one frame to one session. A transport failure is logged and
// absorbed here so it never aborts the caller's loop.
func (r *MessageRouter) push(sess *state.Session, frame []byte) {
	if err := sess.Transport.Send(frame); err != nil {
		SendFailuresTotal.Inc()
		r.logger.Warn("transport push failed", slog.Int64("clientID", sess.ID), slog.Any("error", err))
	}
}
