package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goSession/exchange"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"golang.org/x/sync/singleflight"
)

// Engine runs the session lifecycle: login, lazily refreshed reads, status
// derivation and logout. Build it with [Builder].
type Engine struct {
	config   Config
	store    SessionStore
	exchange Exchanger
	decoder  *jwt.Decoder
	limiter  *rate.Limiter
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
	flows    flows.Deps
	reads    singleflight.Group
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login exchanges the user's credentials with the identity backend and
// persists a fresh session. Every failure is reported as [ErrLoginFailed]
// (or [ErrLoginRateLimited]); the backend's reason is logged only.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				e.logger.WarnContext(ctx, "goSession: login throttle check failed", slog.Any("error", err))
			}
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, audit.EventLoginFailure, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"reason": "rate_limited"}
			})
			return nil, ErrLoginRateLimited
		}
	}

	res := flows.RunLogin(ctx, email, password, e.flows.Login)
	if res.Record == nil {
		e.recordLoginFailure(ctx, email, ip, res)
		return nil, ErrLoginFailed
	}
	rec := res.Record

	if err := e.store.Save(ctx, rec, e.recordTTL(rec)); err != nil {
		e.metricInc(MetricLoginFailure)
		e.logger.ErrorContext(ctx, "goSession: session persist failed",
			slog.String("session_id", rec.SessionID),
			slog.Any("error", err),
		)
		e.emitAudit(ctx, audit.EventLoginFailure, false, rec.User.ID, rec.SessionID, ErrSessionStore, nil)
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, ErrSessionStore)
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, email); err != nil {
			e.logger.WarnContext(ctx, "goSession: login throttle reset failed", slog.Any("error", err))
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, audit.EventLoginSuccess, true, rec.User.ID, rec.SessionID, nil, func() map[string]string {
		if rec.TokenID == "" {
			return nil
		}
		return map[string]string{"token_id": rec.TokenID}
	})
	e.logger.DebugContext(ctx, "goSession: session created",
		slog.String("session_id", rec.SessionID),
		slog.String("user_id", rec.User.ID),
		slog.Int64("valid_until", rec.ValidUntil),
		slog.Int64("refresh_until", rec.RefreshUntil),
	)

	return &LoginResult{
		SessionID: rec.SessionID,
		Session:   viewOf(rec),
	}, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, email, ip string, res flows.LoginResult) {
	if e.limiter != nil && res.Failure != flows.LoginFailureInput {
		if err := e.limiter.IncrementLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			e.logger.WarnContext(ctx, "goSession: login throttle increment failed", slog.Any("error", err))
		}
	}

	attrs := []any{slog.String("reason", res.Failure.String())}
	var exErr *exchange.Error
	if errors.As(res.Err, &exErr) {
		attrs = append(attrs, slog.String("exchange_kind", exErr.Kind.String()))
		if exErr.Status != 0 {
			attrs = append(attrs, slog.Int("status", exErr.Status))
		}
	}
	e.logger.WarnContext(ctx, "goSession: login failed", attrs...)
	e.logger.DebugContext(ctx, "goSession: login failure detail", slog.String("email", email), slog.Any("error", res.Err))

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, audit.EventLoginFailure, false, "", "", ErrLoginFailed, func() map[string]string {
		return map[string]string{"reason": res.Failure.String()}
	})
}

// Session is the session read entrypoint. It classifies the stored record,
// refreshes the access credential when it has expired, writes the whole
// record back when it changed, and returns the read-only projection.
//
// A record whose refresh failed or whose refresh credential expired is still
// returned, with Error set; callers must treat it as unusable.
func (e *Engine) Session(ctx context.Context, sessionID string) (*SessionView, error) {
	rec, err := e.read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return viewOf(rec), nil
}

// Status derives the coarse authorization state of sessionID.
func (e *Engine) Status(ctx context.Context, sessionID string) Status {
	if ctx != nil && ctx.Err() != nil {
		return StatusLoading
	}
	rec, err := e.read(ctx, sessionID)
	switch {
	case err == nil && rec.Error == session.ErrorNone:
		return StatusAuthenticated
	case err == nil, errors.Is(err, ErrSessionNotFound):
		return StatusUnauthenticated
	default:
		return StatusLoading
	}
}

// AccessToken performs a session read and returns the current access
// credential for calling downstream APIs. It fails with [ErrSessionUnusable]
// when the session carries an error or the credential is not valid.
func (e *Engine) AccessToken(ctx context.Context, sessionID string) (string, error) {
	rec, err := e.read(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !flows.Usable(rec, e.now()) {
		return "", ErrSessionUnusable
	}
	return rec.AccessToken, nil
}

// Logout deletes the session record. Logging out a missing session is not
// an error.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	var userID string
	rec, err := e.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		userID = rec.User.ID
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorrupt):
	default:
		err = fmt.Errorf("%w: %v", ErrSessionStore, err)
		e.emitAudit(ctx, audit.EventLogout, false, "", sessionID, err, nil)
		return err
	}

	if err := e.store.Delete(ctx, sessionID, userID); err != nil {
		err = fmt.Errorf("%w: %v", ErrSessionStore, err)
		e.emitAudit(ctx, audit.EventLogout, false, userID, sessionID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, audit.EventLogout, true, userID, sessionID, nil, nil)
	return nil
}

// LogoutAll deletes every session indexed under userID.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	n, err := e.store.DeleteUser(ctx, userID)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSessionStore, err)
		e.emitAudit(ctx, audit.EventLogoutAll, false, userID, "", err, nil)
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, audit.EventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"sessions": fmt.Sprint(n)}
	})
	return nil
}

// ResolveRedirect returns target when it is on the application's origin and
// the application root otherwise. A nil engine has no origin to check
// against and always returns "/".
func (e *Engine) ResolveRedirect(target string) string {
	if e == nil {
		return "/"
	}
	return flows.ResolveRedirect(target, e.config.BaseURL)
}

func (e *Engine) read(ctx context.Context, sessionID string) (rec *session.Record, err error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	start := time.Now()
	defer func() {
		d := time.Since(start)
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricSessionReadLatency, d)
		}
		if e.observer != nil {
			e.observer.ObserveRead(ctx, d, readResult(err))
		}
	}()
	e.metricInc(MetricSessionRead)

	if !e.config.Refresh.Deduplicate {
		return e.readOnce(ctx, sessionID)
	}

	// The flight re-reads the store itself, so a record refreshed by an
	// earlier flight is observed as valid.
	v, err, shared := e.reads.Do(sessionID, func() (any, error) {
		return e.readOnce(context.WithoutCancel(ctx), sessionID)
	})
	if shared {
		e.metricInc(MetricSessionReadShared)
	}
	if err != nil {
		return nil, err
	}
	return v.(*session.Record).Clone(), nil
}

func (e *Engine) readOnce(ctx context.Context, sessionID string) (*session.Record, error) {
	rec, err := e.store.Get(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			e.metricInc(MetricSessionNotFound)
			return nil, ErrSessionNotFound
		case errors.Is(err, session.ErrCorrupt):
			e.metricInc(MetricSessionNotFound)
			e.logger.WarnContext(ctx, "goSession: dropping unreadable session record",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
			// The owner is unreadable, so the user index entry stays behind.
			// LogoutAll clears it and counts only records that still exist.
			if delErr := e.store.Delete(ctx, sessionID, ""); delErr != nil {
				e.logger.WarnContext(ctx, "goSession: corrupt record delete failed", slog.Any("error", delErr))
			}
			return nil, ErrSessionNotFound
		default:
			return nil, fmt.Errorf("%w: %v", ErrSessionStore, err)
		}
	}

	res := flows.RunRead(ctx, rec, e.flows.Read)
	e.observeRead(ctx, res)

	if !res.Changed {
		return res.Record, nil
	}
	if err := e.store.Update(ctx, res.Record, e.recordTTL(res.Record)); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricSessionNotFound)
			e.logger.InfoContext(ctx, "goSession: session removed during read", slog.String("session_id", sessionID))
			return nil, ErrSessionNotFound
		}
		e.logger.ErrorContext(ctx, "goSession: session write-back failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrSessionStore, err)
	}
	return res.Record, nil
}

func (e *Engine) observeRead(ctx context.Context, res flows.ReadResult) {
	rec := res.Record
	switch {
	case res.Refreshed && res.Err == nil:
		e.metricInc(MetricRefreshSuccess)
		if e.observer != nil {
			e.observer.ObserveRefresh(ctx, "")
		}
		e.emitAudit(ctx, audit.EventRefreshSuccess, true, rec.User.ID, rec.SessionID, nil, nil)
	case res.Refreshed:
		e.metricInc(MetricRefreshFailure)
		if e.observer != nil {
			e.observer.ObserveRefresh(ctx, res.Failure.String())
		}
		e.logger.WarnContext(ctx, "goSession: access refresh failed",
			slog.String("session_id", rec.SessionID),
			slog.String("reason", res.Failure.String()),
			slog.Any("error", res.Err),
		)
		e.emitAudit(ctx, audit.EventRefreshFailure, false, rec.User.ID, rec.SessionID, res.Err, func() map[string]string {
			return map[string]string{"reason": res.Failure.String()}
		})
	case res.State == flows.StateExpired && res.Changed:
		e.metricInc(MetricRefreshTokenExpired)
		e.logger.InfoContext(ctx, "goSession: refresh credential expired", slog.String("session_id", rec.SessionID))
		e.emitAudit(ctx, audit.EventRefreshTokenExpired, false, rec.User.ID, rec.SessionID, nil, nil)
	}
}

func readResult(err error) string {
	switch {
	case err == nil:
		return ReadResultOK
	case errors.Is(err, ErrSessionNotFound):
		return ReadResultNotFound
	default:
		return ReadResultError
	}
}

// recordTTL keeps a record until its refresh credential expires plus the
// configured retention.
func (e *Engine) recordTTL(rec *session.Record) time.Duration {
	return time.Unix(rec.RefreshUntil, 0).Sub(e.now()) + e.config.Session.ExpiredRetention
}
