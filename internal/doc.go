// Package internal groups packages private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: pure session lifecycle logic behind every Engine operation
//   - identitystub: development identity backend speaking the exchange contract
//   - rate: Redis-backed failed-login throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
package internal
