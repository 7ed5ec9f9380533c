package flows

import (
	"time"

	"github.com/MrEthical07/goSession/session"
)

// State is the lifecycle state of a session record at a given instant.
type State uint8

const (
	// StateUnauthenticated means no record exists.
	StateUnauthenticated State = iota
	// StateValid means the access credential has not expired.
	StateValid
	// StateRefreshing means the access credential expired but the refresh
	// credential is still valid.
	StateRefreshing
	// StateExpired means both credentials expired, or the validity window is
	// inverted.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateValid:
		return "valid"
	case StateRefreshing:
		return "refreshing"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Classify evaluates rec at now. Checks run in a fixed order: access valid,
// then refresh valid, then both expired. A bound of t seconds holds until
// the instant t, so sub-second time counts.
func Classify(rec *session.Record, now time.Time) State {
	if rec == nil {
		return StateUnauthenticated
	}
	if !rec.WindowConsistent() {
		return StateExpired
	}

	// Bounds are whole seconds: now < t exactly when now's second is < t.
	// Comparing seconds keeps far-future exp values from overflowing.
	sec := now.Unix()
	switch {
	case sec < rec.ValidUntil:
		return StateValid
	case sec < rec.RefreshUntil:
		return StateRefreshing
	default:
		return StateExpired
	}
}

// Usable reports whether rec grants access at now: the access credential is
// valid and no terminal error is recorded.
func Usable(rec *session.Record, now time.Time) bool {
	return Classify(rec, now) == StateValid && rec.Error == session.ErrorNone
}
