// Package identitystub is a development identity backend.
//
// It serves POST /auth/login and POST /auth/refresh with the JSON contract
// consumed by the exchange package, signing credentials with jwt.Issuer over
// an in-memory user table. Passwords are kept only as Argon2id hashes from
// the password package. Engine end-to-end tests and the demo binaries run
// against it.
//
// What this package must NOT do:
//   - be deployed as a real identity provider (accounts live in memory)
//   - revoke or rotate refresh credentials
package identitystub
