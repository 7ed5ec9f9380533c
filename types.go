package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/exchange"
	"github.com/MrEthical07/goSession/session"
)

// Status is the coarse authorization state consumed by presentation code.
type Status int

const (
	// StatusUnauthenticated means no usable session exists.
	StatusUnauthenticated Status = iota
	// StatusAuthenticated means the session exists and carries no error.
	StatusAuthenticated
	// StatusLoading means the state could not be determined yet, for example
	// because the store was unreachable or the request was cancelled.
	StatusLoading
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusLoading:
		return "loading"
	default:
		return "unauthenticated"
	}
}

// MarshalText encodes the status as its lower-case name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrorKind re-exports the terminal failure recorded on a session.
type ErrorKind = session.ErrorKind

const (
	ErrorNone                = session.ErrorNone
	ErrorRefreshAccessToken  = session.ErrorRefreshAccessToken
	ErrorRefreshTokenExpired = session.ErrorRefreshTokenExpired
)

// User is the identity part of a [SessionView].
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	ID    string `json:"id"`
}

// Validity is the validity window of a session in unix seconds.
type Validity struct {
	ValidUntil   int64 `json:"valid_until"`
	RefreshUntil int64 `json:"refresh_until"`
}

// SessionView is the read-only projection handed to presentation code. It
// never carries credentials.
type SessionView struct {
	User     User     `json:"user"`
	Validity Validity `json:"validity"`
	Error    string   `json:"error,omitempty"`
}

// Usable reports whether the view carries no terminal error.
func (v *SessionView) Usable() bool {
	return v != nil && v.Error == ""
}

// LoginResult is returned by a successful [Engine.Login]. SessionID is the
// handle the caller propagates (cookie, header) to later reads.
type LoginResult struct {
	SessionID string
	Session   *SessionView
}

// SessionStore persists session records. Get returns [session.ErrNotFound]
// for a missing record and [session.ErrCorrupt] for an unreadable one.
// Save creates a record; Update replaces one only if it still exists and
// returns [session.ErrNotFound] otherwise.
// [session.Store] is the Redis implementation.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*session.Record, error)
	Save(ctx context.Context, rec *session.Record, ttl time.Duration) error
	Update(ctx context.Context, rec *session.Record, ttl time.Duration) error
	Delete(ctx context.Context, sessionID, userID string) error
	DeleteUser(ctx context.Context, userID string) (int, error)
}

// Exchanger performs the identity backend calls. [exchange.Client] is the
// HTTP implementation.
type Exchanger interface {
	Login(ctx context.Context, email, password string) (exchange.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

func viewOf(rec *session.Record) *SessionView {
	return &SessionView{
		User: User{
			Name:  rec.User.Name,
			Email: rec.User.Email,
			ID:    rec.User.ID,
		},
		Validity: Validity{
			ValidUntil:   rec.ValidUntil,
			RefreshUntil: rec.RefreshUntil,
		},
		Error: rec.Error.String(),
	}
}

// Read results passed to [Observer.ObserveRead].
const (
	ReadResultOK       = "ok"
	ReadResultNotFound = "not_found"
	ReadResultError    = "error"
)

// Observer receives per-event detail that [MetricsSnapshot] cannot carry.
// Methods run on the calling goroutine and must not block.
type Observer interface {
	// ObserveRead reports one completed session read with its duration and
	// one of the ReadResult values.
	ObserveRead(ctx context.Context, d time.Duration, result string)
	// ObserveRefresh reports one refresh exchange. reason is empty on
	// success and names the failure kind otherwise.
	ObserveRefresh(ctx context.Context, reason string)
}
