package jwt

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return "jti-" + strconv.FormatInt(n.Add(1), 10)
	}
}

func TestNewIssuerRejectsInvalidConfig(t *testing.T) {
	_, priv := newEdKeys(t)

	tests := []struct {
		name string
		cfg  IssuerConfig
	}{
		{name: "zero access ttl", cfg: IssuerConfig{RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{name: "refresh shorter than access", cfg: IssuerConfig{AccessTTL: time.Hour, RefreshTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{name: "hs256 without key", cfg: IssuerConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256}},
		{name: "ed25519 bad key", cfg: IssuerConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PrivateKey: []byte("short")}},
		{name: "unknown method", cfg: IssuerConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: "rs512", PrivateKey: priv}},
		{name: "negative leeway", cfg: IssuerConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: -time.Second}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewIssuer(tc.cfg, sequentialIDs()); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}

func TestIssuedPairDecodesWithExpectedWindow(t *testing.T) {
	_, priv := newEdKeys(t)
	now := time.Unix(1_800_000_000, 0)
	iss, err := NewIssuer(IssuerConfig{
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "identity-stub",
		Now:           func() time.Time { return now },
	}, sequentialIDs())
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	access, refresh, err := iss.IssuePair(Identity{UserID: "u-1", Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	d := NewDecoder()
	a, err := d.Decode(access)
	if err != nil {
		t.Fatalf("decode access: %v", err)
	}
	r, err := d.Decode(refresh)
	if err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if a.ExpiresAt != now.Add(5*time.Minute).Unix() {
		t.Fatalf("unexpected access exp %d", a.ExpiresAt)
	}
	if r.ExpiresAt != now.Add(24*time.Hour).Unix() {
		t.Fatalf("unexpected refresh exp %d", r.ExpiresAt)
	}
	if a.UserID != "u-1" || a.Email != "ada@example.com" {
		t.Fatalf("unexpected access identity %+v", a)
	}
	if a.TokenID == r.TokenID || r.TokenID == "" {
		t.Fatalf("expected distinct jti values, got %q and %q", a.TokenID, r.TokenID)
	}
}

func TestVerifyRefreshRejectsAccessTokenAndForeignAlgorithm(t *testing.T) {
	now := time.Now()
	iss, err := NewIssuer(IssuerConfig{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("stub-signing-secret-0123456789"),
		Now:           func() time.Time { return now },
	}, sequentialIDs())
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	id := Identity{UserID: "u-2"}
	refresh, err := iss.IssueRefresh(id)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	got, err := iss.VerifyRefresh(refresh)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if got.UserID != "u-2" {
		t.Fatalf("unexpected identity %+v", got)
	}

	access, err := iss.IssueAccess(id)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := iss.VerifyRefresh(access); err == nil {
		t.Fatal("expected access token to be rejected as refresh")
	}

	_, priv := newEdKeys(t)
	foreign, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, gjwt.MapClaims{
		"id": "u-2", "typ": "refresh", "exp": now.Add(time.Hour).Unix(),
	}).SignedString(priv)
	if err != nil {
		t.Fatalf("sign foreign: %v", err)
	}
	if _, err := iss.VerifyRefresh(foreign); err == nil {
		t.Fatal("expected foreign algorithm to be rejected")
	}
}

func TestVerifyRefreshRejectsExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	iss, err := NewIssuer(IssuerConfig{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("stub-signing-secret-0123456789"),
		Now:           func() time.Time { return clock() },
	}, sequentialIDs())
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	refresh, err := iss.IssueRefresh(Identity{UserID: "u-3"})
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	clock = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := iss.VerifyRefresh(refresh); err == nil {
		t.Fatal("expected expired refresh token to be rejected")
	}
}
