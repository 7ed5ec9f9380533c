package session

// ErrorKind is the terminal failure recorded on a [Record] by the lifecycle
// controller.
type ErrorKind uint8

const (
	// ErrorNone means the record carries no failure.
	ErrorNone ErrorKind = iota
	// ErrorRefreshAccessToken means the last refresh exchange failed; the session
	// is unusable until the user logs in again.
	ErrorRefreshAccessToken
	// ErrorRefreshTokenExpired means both validity timestamps have passed.
	ErrorRefreshTokenExpired
)

// String returns the wire name exposed to presentation code.
func (k ErrorKind) String() string {
	switch k {
	case ErrorRefreshAccessToken:
		return "RefreshAccessTokenError"
	case ErrorRefreshTokenExpired:
		return "RefreshTokenExpired"
	default:
		return ""
	}
}

// User is the identity decoded from the access credential at login.
type User struct {
	ID    string
	Name  string
	Email string
}

// Record is the persisted session state: identity, the credential pair, the
// validity window derived from it, and any terminal error.
//
// A Record is replaced as a whole on every write; callers never patch single
// fields in the store.
type Record struct {
	SessionID string
	// TokenID is the refresh credential's jti. It is kept for audit and is
	// never used as a lookup key.
	TokenID string
	User    User

	AccessToken  string
	RefreshToken string

	// ValidUntil is the access credential's exp (unix seconds).
	ValidUntil int64
	// RefreshUntil is the refresh credential's exp (unix seconds).
	RefreshUntil int64

	Error ErrorKind

	CreatedAt int64
	UpdatedAt int64
}

// Clone returns a copy of r. Record holds no reference types, so a value copy
// is a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

// WindowConsistent reports whether RefreshUntil >= ValidUntil.
func (r *Record) WindowConsistent() bool {
	return r != nil && r.RefreshUntil >= r.ValidUntil
}
