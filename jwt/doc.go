// Package jwt reads and (for development backends) signs the JWT-shaped credentials
// exchanged with the identity backend.
//
// # Decoding
//
// [Decoder] extracts exp, jti and identity claims without verifying the signature.
// Signature verification belongs to the identity backend; the client only needs the
// claims to drive the credential lifecycle. Malformed input and tokens without a
// positive exp fail with [*DecodeError].
//
// # Issuing
//
// [Issuer] signs access and refresh credentials (HS256 or Ed25519) and verifies refresh
// credentials. It exists for the identity stub and tests.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import goSession, session, or exchange.
//   - Default a missing expiry to any value.
package jwt
