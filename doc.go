// Package goSession manages the client side of a two-credential session: it
// logs in against an identity backend, persists the resulting access/refresh
// pair as a session record, and lazily refreshes the access credential on
// every session read.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. There is no background refresh
// loop; staleness is detected exactly when a session is read.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([SessionView], [Status], MetricsSnapshot). Lifecycle
// decisions live in internal/flows as pure functions; persistence lives in
// the session package; backend calls live in the exchange package.
//
// # What this package must NOT do
//
//   - Return credentials from [Engine.Session]; only [Engine.AccessToken]
//     hands out the access credential, and the refresh credential never leaves
//     the store.
//   - Surface backend rejection detail from [Engine.Login].
//   - Verify token signatures; that is the identity backend's job.
//   - Retry a failed login or refresh on its own.
package goSession
