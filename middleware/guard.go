package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

type sessionContextKey struct{}

type sessionIDContextKey struct{}

// SessionIDFunc extracts the session handle from a request.
type SessionIDFunc func(r *http.Request) (string, bool)

// CookieSessionID reads the session ID from the named cookie.
func CookieSessionID(name string) SessionIDFunc {
	return func(r *http.Request) (string, bool) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
}

// BearerSessionID reads the session ID from an "Authorization: Bearer" header.
func BearerSessionID(r *http.Request) (string, bool) {
	return bearerToken(r.Header.Get("Authorization"))
}

// SessionFromContext returns the view injected by [RequireSession].
func SessionFromContext(ctx context.Context) (*goSession.SessionView, bool) {
	v, ok := ctx.Value(sessionContextKey{}).(*goSession.SessionView)
	return v, ok
}

// SessionIDFromContext returns the session ID injected by [RequireSession].
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey{}).(string)
	return id, ok
}

// RequireSession admits requests carrying a usable session. Missing or
// errored sessions get 401; an undeterminable state (store down, request
// cancelled) gets 503.
func RequireSession(engine *goSession.Engine, sessionID SessionIDFunc) func(http.Handler) http.Handler {
	if sessionID == nil {
		sessionID = BearerSessionID
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, ok := sessionID(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := goSession.WithClientIP(r.Context(), clientIP(r))
			view, err := engine.Session(ctx, id)
			if err != nil {
				if errors.Is(err, goSession.ErrSessionNotFound) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}
			if !view.Usable() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, view)
			ctx = context.WithValue(ctx, sessionIDContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectToLogin sends unauthenticated requests to loginPath with the
// original URL in the callbackUrl query parameter. Authenticated requests
// pass through with the session in context, as with [RequireSession].
func RedirectToLogin(engine *goSession.Engine, sessionID SessionIDFunc, loginPath string) func(http.Handler) http.Handler {
	guard := RequireSession(engine, sessionID)
	return func(next http.Handler) http.Handler {
		guarded := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusSniffer{ResponseWriter: w}
			guarded.ServeHTTP(rec, r)
			if rec.unauthorized {
				target := loginPath + "?callbackUrl=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
			}
		})
	}
}

// Continue redirects to target when it is on the application origin and to
// the application root otherwise.
func Continue(w http.ResponseWriter, r *http.Request, engine *goSession.Engine, target string) {
	http.Redirect(w, r, engine.ResolveRedirect(target), http.StatusSeeOther)
}

// statusSniffer swallows a 401 from the guard so the caller can redirect.
type statusSniffer struct {
	http.ResponseWriter
	unauthorized bool
	wrote        bool
}

func (s *statusSniffer) WriteHeader(code int) {
	if !s.wrote && code == http.StatusUnauthorized {
		s.unauthorized = true
		s.wrote = true
		return
	}
	s.wrote = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusSniffer) Write(p []byte) (int, error) {
	if s.unauthorized {
		return len(p), nil
	}
	s.wrote = true
	return s.ResponseWriter.Write(p)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
