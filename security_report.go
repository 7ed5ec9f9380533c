package goSession

import (
	"net/url"
	"time"
)

// SecurityReport summarizes the security posture of a built Engine.
type SecurityReport struct {
	RecordsSealed          bool
	BackendTLS             bool
	AppTLS                 bool
	LoginThrottleActive    bool
	IPThrottleActive       bool
	AuditEnabled           bool
	RefreshDeduplicated    bool
	ExpiredRetention       time.Duration
	BackendTimeout         time.Duration
	MaxBackendPayloadBytes int64
}

// SecurityReport derives the posture from the Engine's frozen config.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	throttle := e.config.Security.EnableLoginThrottle &&
		e.config.Security.MaxLoginAttempts > 0 &&
		e.config.Security.LoginCooldown > 0

	return SecurityReport{
		RecordsSealed:          e.config.Session.SealRecords,
		BackendTLS:             isHTTPS(e.config.Backend.BaseURL),
		AppTLS:                 isHTTPS(e.config.BaseURL),
		LoginThrottleActive:    throttle,
		IPThrottleActive:       throttle && e.config.Security.EnableIPThrottle,
		AuditEnabled:           e.config.Audit.Enabled,
		RefreshDeduplicated:    e.config.Refresh.Deduplicate,
		ExpiredRetention:       e.config.Session.ExpiredRetention,
		BackendTimeout:         e.config.Backend.Timeout,
		MaxBackendPayloadBytes: e.config.Backend.MaxPayloadBytes,
	}
}

func isHTTPS(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https"
}
