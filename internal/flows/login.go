package flows

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/exchange"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// LoginFailureKind classifies login failures for logging. Callers surface a
// single generic failure regardless of kind.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInput
	LoginFailureExchange
	LoginFailureDecodeAccess
	LoginFailureDecodeRefresh
	LoginFailureWindow
)

func (k LoginFailureKind) String() string {
	switch k {
	case LoginFailureNone:
		return "none"
	case LoginFailureInput:
		return "input"
	case LoginFailureExchange:
		return "exchange"
	case LoginFailureDecodeAccess:
		return "decode_access"
	case LoginFailureDecodeRefresh:
		return "decode_refresh"
	case LoginFailureWindow:
		return "inverted_window"
	default:
		return "unknown"
	}
}

// Authenticator exchanges user credentials for a credential pair.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (exchange.Pair, error)
}

// LoginDeps captures login flow dependencies. NewSessionID mints the
// session handle and must be unpredictable.
type LoginDeps struct {
	Now          func() time.Time
	Exchange     Authenticator
	Decode       func(string) (*jwt.Claims, error)
	NewSessionID func() string
}

// LoginResult carries the fresh record or failure metadata. Record is nil on
// every failure.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Record  *session.Record
}

var errInvertedWindow = &jwt.DecodeError{Reason: "refresh credential expires before access credential"}

// RunLogin performs the credential exchange and builds a fresh record from the
// decoded pair. Both tokens are decoded exactly once.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{Failure: LoginFailureInput}
	}

	pair, err := deps.Exchange.Login(ctx, email, password)
	if err != nil {
		return LoginResult{Failure: LoginFailureExchange, Err: err}
	}

	access, err := deps.Decode(pair.Access)
	if err != nil {
		return LoginResult{Failure: LoginFailureDecodeAccess, Err: err}
	}
	refresh, err := deps.Decode(pair.Refresh)
	if err != nil {
		return LoginResult{Failure: LoginFailureDecodeRefresh, Err: err}
	}
	if refresh.ExpiresAt < access.ExpiresAt {
		return LoginResult{Failure: LoginFailureWindow, Err: errInvertedWindow}
	}

	now := deps.Now().Unix()
	return LoginResult{
		Record: &session.Record{
			SessionID: deps.NewSessionID(),
			TokenID:   refresh.TokenID,
			User: session.User{
				ID:    access.UserID,
				Name:  access.Name,
				Email: access.Email,
			},
			AccessToken:  pair.Access,
			RefreshToken: pair.Refresh,
			ValidUntil:   access.ExpiresAt,
			RefreshUntil: refresh.ExpiresAt,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}
