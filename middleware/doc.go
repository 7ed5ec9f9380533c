// Package middleware adapts goSession.Engine to net/http.
//
// # Guards
//
//   - [RequireSession] performs a session read (refreshing if due) and admits
//     only usable sessions, injecting the view into the request context.
//   - [RedirectToLogin] wraps RequireSession and redirects unauthenticated
//     requests to a login page with a callbackUrl.
//   - [Continue] redirects through Engine.ResolveRedirect.
//
// # What this package must NOT do
//
//   - Decode credentials or call the identity backend directly.
//   - Access Redis (Engine handles I/O).
//   - Expose credentials in the request context; only the view is injected.
package middleware
