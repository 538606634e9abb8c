package domain

import "time"

// Audit actions recorded by the service. Self-registration emits no event.
const (
	AuditActionUserLogin   = "USER_LOGIN"
	AuditActionUserLogout  = "USER_LOGOUT"
	AuditActionUserCreated = "USER_CREATED"
	AuditActionUserUpdated = "USER_UPDATED"
	AuditActionUserDeleted = "USER_DELETED"
)

// AuditEntry is a security-relevant event handed to the audit sink.
// Recording is best-effort; a failed write must never fail the flow
// that produced it.
type AuditEntry struct {
	ID        string
	Action    string
	UserID    *string
	Details   map[string]any
	IPAddress *string
	UserAgent *string
	CreatedAt time.Time
}

// AuditLog is a persisted audit entry as returned by queries, with the
// acting user joined in when still present.
type AuditLog struct {
	Entry AuditEntry
	Actor *User
}
