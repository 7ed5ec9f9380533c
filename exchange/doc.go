// Package exchange is the HTTP client for the identity backend's two credential
// exchanges: login (email + password for an access/refresh pair) and refresh (refresh
// credential for a new access credential).
//
// Every failure is returned as a tagged [*Error]: KindRejected for non-2xx answers
// (the backend payload is passed through opaquely), KindTransport when no response
// arrived, and KindMalformed when a 2xx body did not contain the expected tokens.
//
// # What this package must NOT do
//
//   - Retry. Retry policy belongs to the caller.
//   - Keep state between calls.
//   - Put the refresh token or the password into errors or logs.
package exchange
