// Package rate throttles failed login attempts with Redis fixed-window
// counters.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Keys live under the configured
// prefix:
//   - <prefix>:rl:e:  failed logins per normalized email
//   - <prefix>:rl:ip: failed logins per client IP (optional)
//
// # What this package must NOT do
//
//   - Decide whether a login succeeded; the Engine reports outcomes.
//   - Throttle session reads or refreshes.
package rate
