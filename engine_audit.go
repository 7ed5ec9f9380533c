package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/exchange"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/jwt"
)

// AuditErrorCode is the stable error label carried on failed audit events.
type AuditErrorCode string

const (
	auditErrLoginFailed      AuditErrorCode = "login_failed"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrRejected         AuditErrorCode = "backend_rejected"
	auditErrTransport        AuditErrorCode = "backend_unavailable"
	auditErrMalformed        AuditErrorCode = "backend_malformed"
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var exErr *exchange.Error
	switch {
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSessionStore):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrLoginFailed):
		return auditErrLoginFailed
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, jwt.ErrDecode):
		return auditErrInvalidToken
	case errors.As(err, &exErr):
		switch exErr.Kind {
		case exchange.KindRejected:
			return auditErrRejected
		case exchange.KindMalformed:
			return auditErrMalformed
		default:
			return auditErrTransport
		}
	default:
		return auditErrInternal
	}
}
