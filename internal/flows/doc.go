// Package flows contains the pure session lifecycle logic behind every Engine
// operation.
//
// [Classify] maps a record and an instant to a [State]; [ApplyRefreshResult]
// and [MarkExpired] derive the next record. [RunRead] and [RunLogin] sequence a
// single read or login against injected dependencies and return typed results
// instead of errors for the engine to map.
//
// # Architecture boundaries
//
// Flows coordinate the exchange client and token decoder. They do NOT own the
// session store, audit dispatcher or metrics; persistence stays with the
// Engine, which writes [ReadResult.Record] back when [ReadResult.Changed] is set.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Read or write the session store.
//   - Return an exchange error as a session error; refresh failures live on the record.
package flows
