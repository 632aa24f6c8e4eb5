package goAuthen

import (
	"context"
	"io"

	"github.com/MrEthical07/goAuthen/internal/audit"
)

// AuditEvent is one authentication outcome delivered to an [AuditSink].
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditLoginSuccess  = audit.EventLoginSuccess
	AuditLoginFailure  = audit.EventLoginFailure
	AuditLogout        = audit.EventLogout
	AuditLoginTimeout  = audit.EventLoginTimeout
	AuditStateTampered = audit.EventStateTampered
	AuditBackendError  = audit.EventBackendError
)

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// AuditFunc adapts a function to [AuditSink].
type AuditFunc = audit.SinkFunc

// NewChannelSink returns a sink with a channel of the given capacity.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func (e *Engine) emitAudit(ctx context.Context, c *Controller, eventType, username string, success bool, err error) {
	if e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		App:       c.app,
		Username:  username,
		Runmode:   c.host.CurrentRunmode(),
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	e.audit.Emit(ctx, ev)
}
