package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/exchange"
	"github.com/MrEthical07/goSession/session"
)

// RefreshFailureKind classifies a failed refresh for logging and metrics.
// Every kind has the same effect on the record.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureRejected
	RefreshFailureTransport
	RefreshFailureMalformed
	RefreshFailureDecode
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureRejected:
		return "rejected"
	case RefreshFailureTransport:
		return "transport"
	case RefreshFailureMalformed:
		return "malformed"
	case RefreshFailureDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Refresher exchanges a refresh credential for a new access credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// ReadDeps captures session read dependencies.
type ReadDeps struct {
	Now          func() time.Time
	Exchange     Refresher
	DecodeExpiry func(string) (int64, error)
}

// ReadResult is the outcome of one lifecycle read.
type ReadResult struct {
	// State is the classification of the record as it was read.
	State State
	// Record is the record after the read; nil when unauthenticated.
	Record *session.Record
	// Changed reports that Record differs from the input and must be written back.
	Changed bool
	// Refreshed reports that the exchange was called.
	Refreshed bool
	Failure   RefreshFailureKind
	// Err is the refresh failure, for logging only. It is already encoded on
	// Record.Error and must not be returned to callers.
	Err error
}

// ApplyRefreshResult merges a refresh outcome into a copy of rec. On success
// the access credential and ValidUntil are replaced and any error is cleared.
// On failure the stale credential and ValidUntil stay and the record is marked
// with [session.ErrorRefreshAccessToken].
func ApplyRefreshResult(rec *session.Record, access string, expiresAt int64, err error, now time.Time) *session.Record {
	out := rec.Clone()
	out.UpdatedAt = now.Unix()
	if err != nil {
		out.Error = session.ErrorRefreshAccessToken
		return out
	}
	out.AccessToken = access
	out.ValidUntil = expiresAt
	out.Error = session.ErrorNone
	return out
}

// MarkExpired returns a copy of rec carrying [session.ErrorRefreshTokenExpired].
func MarkExpired(rec *session.Record, now time.Time) *session.Record {
	out := rec.Clone()
	out.Error = session.ErrorRefreshTokenExpired
	out.UpdatedAt = now.Unix()
	return out
}

// RunRead executes one session read against rec. Valid and expired records
// never touch the network; a refreshing record triggers exactly one Refresh
// call. Refresh failures are folded into the returned record.
func RunRead(ctx context.Context, rec *session.Record, deps ReadDeps) ReadResult {
	now := deps.Now()
	state := Classify(rec, now)

	switch state {
	case StateUnauthenticated:
		return ReadResult{State: state}
	case StateValid:
		return ReadResult{State: state, Record: rec}
	case StateExpired:
		if rec.Error == session.ErrorRefreshTokenExpired {
			return ReadResult{State: state, Record: rec}
		}
		return ReadResult{
			State:   state,
			Record:  MarkExpired(rec, now),
			Changed: true,
		}
	}

	access, err := deps.Exchange.Refresh(ctx, rec.RefreshToken)
	failure := RefreshFailureNone
	var expiresAt int64
	if err != nil {
		failure = refreshFailureKind(err)
	} else if expiresAt, err = deps.DecodeExpiry(access); err != nil {
		failure = RefreshFailureDecode
	}

	return ReadResult{
		State:     state,
		Record:    ApplyRefreshResult(rec, access, expiresAt, err, deps.Now()),
		Changed:   true,
		Refreshed: true,
		Failure:   failure,
		Err:       err,
	}
}

func refreshFailureKind(err error) RefreshFailureKind {
	var exErr *exchange.Error
	if !errors.As(err, &exErr) {
		return RefreshFailureTransport
	}
	switch exErr.Kind {
	case exchange.KindRejected:
		return RefreshFailureRejected
	case exchange.KindMalformed:
		return RefreshFailureMalformed
	default:
		return RefreshFailureTransport
	}
}
