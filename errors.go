package goSession

import "errors"

var (
	// ErrLoginFailed is the only failure a login caller sees. Backend detail is
	// logged, never returned.
	ErrLoginFailed = errors.New("authentication failed")
	// ErrLoginRateLimited is returned when the login throttle denies an attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionNotFound means no session record exists for the ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionUnusable means a record exists but carries a terminal error or
	// an expired access credential.
	ErrSessionUnusable = errors.New("session unusable")
	// ErrSessionStore wraps session store infrastructure failures.
	ErrSessionStore = errors.New("session store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)
