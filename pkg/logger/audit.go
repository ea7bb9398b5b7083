package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Audit event types
const (
	EventRegister       = "user_registered"
	EventLoginSuccess   = "login_success"
	EventLoginFailed    = "login_failed"
	EventAccountLocked  = "account_locked"
	EventLogout         = "logout"
	EventTokenRefreshed = "token_refreshed"
	EventPasswordChange = "password_change"
	EventPasswordReset  = "password_reset"
	EventResetRequested = "password_reset_requested"
	EventProfileUpdated = "profile_updated"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        int64
	Username      string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through slog
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs authentication attempts. Failures are logged at Warn.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != 0 {
		attrs = append(attrs, slog.String("user_id", strconv.FormatInt(event.UserID, 10)))
	}
	if event.Username != "" {
		attrs = append(attrs, slog.String("username", SanitizedUsername(event.Username)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogAccountAction logs account lifecycle actions (registration, password changes, profile edits)
func (al *AuditLogger) LogAccountAction(eventType string, userID int64, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("user_id", strconv.FormatInt(userID, 10)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
