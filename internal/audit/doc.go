// Package audit delivers authentication events asynchronously to a sink.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, no-op, func).
//   - [Dispatcher]: buffered relay that either drops or blocks when full.
//   - [Event]: one login, logout, timeout, tamper or backend failure record.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. It does NOT decide which events
// to emit; the engine's controllers do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on their content.
//   - Import goAuthen or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
