package identitystub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
)

const maxRequestBytes = 16 << 10

// User is one account known to the stub. Password is plaintext on input
// and is stored only as an Argon2id hash.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
}

// Options configures a [Server]. Hasher defaults to
// password.DefaultParams.
type Options struct {
	Issuer *jwt.Issuer
	Hasher *password.Hasher
	Logger *slog.Logger
	Users  []User
}

type account struct {
	user User
	hash string
}

// Server is an in-memory identity backend speaking the login/refresh JSON
// contract consumed by exchange.Client.
type Server struct {
	issuer *jwt.Issuer
	hasher *password.Hasher
	logger *slog.Logger

	mu    sync.RWMutex
	users map[string]account

	logins      atomic.Int64
	refreshes   atomic.Int64
	failRefresh atomic.Bool
}

// New returns a [Server]. Issuer is required.
func New(opts Options) (*Server, error) {
	if opts.Issuer == nil {
		return nil, errors.New("identitystub: issuer required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	hasher := opts.Hasher
	if hasher == nil {
		var err error
		if hasher, err = password.NewHasher(password.DefaultParams()); err != nil {
			return nil, err
		}
	}
	s := &Server{
		issuer: opts.Issuer,
		hasher: hasher,
		logger: logger,
		users:  make(map[string]account, len(opts.Users)),
	}
	for _, u := range opts.Users {
		if err := s.AddUser(u); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddUser registers or replaces u, keyed by lower-cased email.
func (s *Server) AddUser(u User) error {
	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return fmt.Errorf("identitystub: hash password for %s: %w", u.ID, err)
	}
	u.Password = ""

	s.mu.Lock()
	s.users[strings.ToLower(strings.TrimSpace(u.Email))] = account{user: u, hash: hash}
	s.mu.Unlock()
	return nil
}

// LoginCount returns how many successful logins were served.
func (s *Server) LoginCount() int64 { return s.logins.Load() }

// RefreshCount returns how many refresh requests reached the handler.
func (s *Server) RefreshCount() int64 { return s.refreshes.Load() }

// FailRefresh makes every following refresh answer 401 until reset.
func (s *Server) FailRefresh(fail bool) { s.failRefresh.Store(fail) }

// Handler returns the chi router serving the backend endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
	)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

var (
	errNoAccount    = errorBody{Detail: "No active account found with the given credentials"}
	errInvalidToken = errorBody{Detail: "Token is invalid or expired", Code: "token_not_valid"}
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed request body"})
		return
	}

	s.mu.RLock()
	acct, ok := s.users[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.RUnlock()

	var match bool
	if ok {
		match, _ = s.hasher.Verify(req.Password, acct.hash)
	} else {
		match = s.hasher.VerifyUnknown(req.Password)
	}
	if !match {
		s.logger.InfoContext(r.Context(), "identitystub: login rejected",
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		writeJSON(w, http.StatusUnauthorized, errNoAccount)
		return
	}

	u := acct.user
	access, refresh, err := s.issuer.IssuePair(jwt.Identity{UserID: u.ID, Name: u.Name, Email: u.Email})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "identitystub: issue failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal error"})
		return
	}

	s.logins.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)

	var req refreshRequest
	if err := decodeBody(r, &req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "refresh field required"})
		return
	}
	if s.failRefresh.Load() {
		writeJSON(w, http.StatusUnauthorized, errInvalidToken)
		return
	}

	id, err := s.issuer.VerifyRefresh(req.Refresh)
	if err != nil {
		s.logger.InfoContext(r.Context(), "identitystub: refresh rejected",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusUnauthorized, errInvalidToken)
		return
	}

	access, err := s.issuer.IssueAccess(id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "identitystub: issue failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
