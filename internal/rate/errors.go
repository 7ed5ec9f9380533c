package rate

import "errors"

var (
	// ErrRateLimited is returned when an attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is returned when a counter command fails.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
