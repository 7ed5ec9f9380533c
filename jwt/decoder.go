package jwt

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDecode is matched by every error returned from [Decoder.Decode].
var ErrDecode = errors.New("token decode failed")

// DecodeError reports a token whose claims could not be read. Callers must treat
// the token as unusable.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "token decode failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "token decode failed: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrDecode so callers can use errors.Is without a type assertion.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Claims holds the identity and expiry fields read from a credential.
type Claims struct {
	UserID    string
	Name      string
	Email     string
	TokenID   string
	ExpiresAt int64
}

// identityClaims mirrors the payload emitted by the identity backend. The subject
// id travels in "id"; "sub" is accepted as a fallback.
type identityClaims struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Decoder reads claims from signed tokens without verifying the signature.
// Verification is the identity backend's job; the client only needs expiry and
// identity fields to drive the session lifecycle.
//
// Decoder has no state and is safe for concurrent use.
type Decoder struct {
	parser *jwt.Parser
}

// NewDecoder returns a ready [Decoder].
func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser(jwt.WithoutClaimsValidation())}
}

// Decode extracts [Claims] from token. It fails with a [*DecodeError] when the
// token is malformed or carries no positive exp claim; it never substitutes a
// default expiry.
func (d *Decoder) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &DecodeError{Reason: "empty token"}
	}

	parser := d.parser
	if parser == nil {
		parser = jwt.NewParser(jwt.WithoutClaimsValidation())
	}

	var raw identityClaims
	if _, _, err := parser.ParseUnverified(token, &raw); err != nil {
		return nil, &DecodeError{Reason: "malformed token", Err: err}
	}
	if raw.ExpiresAt == nil {
		return nil, &DecodeError{Reason: "missing exp claim"}
	}
	exp := raw.ExpiresAt.Unix()
	if exp <= 0 {
		return nil, &DecodeError{Reason: "invalid exp claim"}
	}

	userID := raw.ID
	if userID == "" {
		userID = raw.Subject
	}

	return &Claims{
		UserID:    userID,
		Name:      raw.Name,
		Email:     raw.Email,
		TokenID:   raw.RegisteredClaims.ID,
		ExpiresAt: exp,
	}, nil
}

// ExpiresAt is a shortcut for callers that only need the expiry timestamp.
func (d *Decoder) ExpiresAt(token string) (int64, error) {
	claims, err := d.Decode(token)
	if err != nil {
		return 0, err
	}
	return claims.ExpiresAt, nil
}
