// Package audit dispatches session lifecycle events asynchronously.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//   - [Event]: timestamped record of a login, refresh or logout outcome.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. It does NOT decide which events
// to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter events based on business logic.
//   - Import goSession or any sibling internal package.
//   - Accept credentials in event fields.
package audit
