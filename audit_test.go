package goAuthen

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func buildAuditTestEngine(t *testing.T, enabled bool, sink AuditSink) *Engine {
	t.Helper()
	cfg := DefaultEngineConfig()
	cfg.Audit.Enabled = enabled
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false

	engine, err := New().
		WithConfig(cfg).
		WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }).
		WithAuditSink(sink).
		WithApp("test", "DRIVER", genericDriver).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func auditRequest(t *testing.T, e *Engine, b *browser, runmode string, params map[string]string) {
	t.Helper()
	h := b.host(runmode, params)
	ctx := WithClientIP(context.Background(), "198.51.100.33")
	c := e.NewController(ctx, "test", h)
	if err := c.Prerun(); err != nil {
		t.Fatalf("Prerun failed: %v", err)
	}
	b.absorb(h)
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
	return AuditEvent{}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	engine := buildAuditTestEngine(t, false, sink)

	auditRequest(t, engine, newBrowser(), "start", login("user1", "wrong"))
	auditRequest(t, engine, newBrowser(), "start", login("user1", "123"))
	_ = engine.Close()

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", got)
	}
}

func TestAuditLoginEventsCarryRequestFields(t *testing.T) {
	sink := NewChannelSink(8)
	engine := buildAuditTestEngine(t, true, sink)
	b := newBrowser()

	auditRequest(t, engine, b, "orders", login("user1", "super-secret-password"))
	ev := nextEvent(t, sink)
	if ev.EventType != AuditLoginFailure || ev.Success {
		t.Fatalf("expected login failure, got %+v", ev)
	}
	if ev.App != "test" || ev.Runmode != "orders" || ev.IP != "198.51.100.33" || ev.Username != "user1" {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	if !ev.Timestamp.Equal(time.Unix(1_700_000_000, 0)) {
		t.Fatalf("timestamp = %v", ev.Timestamp)
	}
	if strings.Contains(ev.Error, "super-secret-password") {
		t.Fatal("sensitive password leaked in error")
	}
	for _, v := range ev.Metadata {
		if strings.Contains(v, "super-secret-password") {
			t.Fatal("sensitive password leaked in metadata")
		}
	}

	auditRequest(t, engine, b, "start", login("user1", "123"))
	if ev := nextEvent(t, sink); ev.EventType != AuditLoginSuccess || !ev.Success || ev.Username != "user1" {
		t.Fatalf("expected login success, got %+v", ev)
	}

	auditRequest(t, engine, b, "start", map[string]string{ParamLogout: "1"})
	if ev := nextEvent(t, sink); ev.EventType != AuditLogout || ev.Username != "user1" {
		t.Fatalf("expected logout, got %+v", ev)
	}
}

func TestAuditTamperedState(t *testing.T) {
	sink := NewChannelSink(8)
	engine := buildAuditTestEngine(t, true, sink)
	b := newBrowser()
	b.cookies["CAPAUTH_DATA"] = "not-a-signed-value"

	auditRequest(t, engine, b, "start", nil)
	ev := nextEvent(t, sink)
	if ev.EventType != AuditStateTampered || ev.Success || ev.Error == "" {
		t.Fatalf("expected tampered state event, got %+v", ev)
	}
}

func TestAuditJSONWriterSinkThroughEngine(t *testing.T) {
	var buf syncBuffer
	engine := buildAuditTestEngine(t, true, NewJSONWriterSink(&buf))

	auditRequest(t, engine, newBrowser(), "start", login("user2", "456"))
	_ = engine.Close()

	if !buf.Contains(`"event_type":"login_success"`) {
		t.Fatalf("expected JSON log line to contain event type, got %s", buf.String())
	}
	if !buf.Contains(`"username":"user2"`) {
		t.Fatalf("expected JSON log line to contain username, got %s", buf.String())
	}
	if buf.Contains("456") {
		t.Fatal("password leaked into audit log")
	}
}

func TestAuditDroppedWithoutDispatcher(t *testing.T) {
	engine := buildAuditTestEngine(t, false, nil)
	if got := engine.AuditDropped(); got != 0 {
		t.Fatalf("AuditDropped = %d", got)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(v string) bool {
	return strings.Contains(b.String(), v)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
