// Package session provides the persisted session record, its compact binary encoding,
// at-rest sealing, and a Redis-backed store.
//
// # Binary encoding
//
// Records are stored as a versioned binary blob (schema v1–v2). Decode accepts every
// supported version; Encode always writes the current one.
//
// # Sealing
//
// When the store is built with a [Sealer], blobs are encrypted with a key derived from
// the session secret and bound to their session ID. A blob written under another secret
// reads back as [ErrCorrupt].
//
// # Architecture boundaries
//
// This package owns the [Record] model and the [Store]. It does NOT decide whether a
// record is valid, refreshable or expired; that is the lifecycle controller's job.
//
// # What this package must NOT do
//
//   - Import goSession, jwt, or exchange (no upward imports).
//   - Patch individual record fields in Redis; writes replace the whole record.
//   - Log or expose token values.
package session
