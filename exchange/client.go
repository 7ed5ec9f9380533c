package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	opLogin   = "login"
	opRefresh = "refresh"
)

// Config configures the identity backend endpoints.
type Config struct {
	BaseURL         string
	LoginPath       string
	RefreshPath     string
	Timeout         time.Duration
	MaxPayloadBytes int64
	HTTPClient      *http.Client
}

// Pair is the credential pair returned by a successful login.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Client performs the login and refresh exchanges against the identity backend.
// It keeps no state between calls, never retries, and is safe for concurrent use.
type Client struct {
	http       *http.Client
	loginURL   string
	refreshURL string
	maxPayload int64
}

// NewClient validates cfg and returns a [Client].
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("exchange: backend base URL required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("exchange: invalid backend base URL %q", cfg.BaseURL)
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/auth/refresh"
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 64 << 10
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		http:       hc,
		loginURL:   base + ensureLeadingSlash(cfg.LoginPath),
		refreshURL: base + ensureLeadingSlash(cfg.RefreshPath),
		maxPayload: cfg.MaxPayloadBytes,
	}, nil
}

// Login exchanges email and password for a credential [Pair].
func (c *Client) Login(ctx context.Context, email, password string) (Pair, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var pair Pair
	if err := c.post(ctx, opLogin, c.loginURL, body, &pair); err != nil {
		return Pair{}, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return Pair{}, &Error{Op: opLogin, Kind: KindMalformed, Err: errors.New("response missing tokens")}
	}
	return pair, nil
}

// Refresh exchanges a refresh credential for a new access credential. The
// refresh token is never included in returned errors.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refreshToken}

	var out struct {
		Access string `json:"access"`
	}
	if err := c.post(ctx, opRefresh, c.refreshURL, body, &out); err != nil {
		return "", redactPayload(err, refreshToken)
	}
	if out.Access == "" {
		return "", &Error{Op: opRefresh, Kind: KindMalformed, Err: errors.New("response missing access token")}
	}
	return out.Access, nil
}

func (c *Client) post(ctx context.Context, op, target string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: errors.New("encode request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: errors.New("build request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: scrubTransportError(err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxPayload))
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Status: resp.StatusCode, Err: errors.New("read response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Kind: KindRejected, Status: resp.StatusCode, Payload: rejectionPayload(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Kind: KindMalformed, Status: resp.StatusCode, Err: errors.New("decode response body")}
	}
	return nil
}

// scrubTransportError keeps the failure class but drops the *url.Error wrapper,
// whose message embeds the request URL.
func scrubTransportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

func rejectionPayload(data []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, err := json.Marshal(string(trimmed))
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}

// redactPayload strips secret from a rejection payload in case the backend echoes
// the request back.
func redactPayload(err error, secret string) error {
	var exErr *Error
	if secret == "" || !errors.As(err, &exErr) || len(exErr.Payload) == 0 {
		return err
	}
	if bytes.Contains(exErr.Payload, []byte(secret)) {
		exErr.Payload = bytes.ReplaceAll(exErr.Payload, []byte(secret), []byte("[redacted]"))
	}
	return err
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
