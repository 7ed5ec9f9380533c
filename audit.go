package goSession

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one session lifecycle audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's dispatcher.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink writes audit events as structured log records.
type SlogSink = audit.SlogSink

// Audit event types.
const (
	AuditLoginSuccess        = audit.EventLoginSuccess
	AuditLoginFailure        = audit.EventLoginFailure
	AuditRefreshSuccess      = audit.EventRefreshSuccess
	AuditRefreshFailure      = audit.EventRefreshFailure
	AuditRefreshTokenExpired = audit.EventRefreshTokenExpired
	AuditLogout              = audit.EventLogout
	AuditLogoutAll           = audit.EventLogoutAll
)

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }
