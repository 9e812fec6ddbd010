package domain

import "time"

// AuditAction represents the kind of change made to the incident register.
type AuditAction string

// Audit actions.
const (
	AuditActionCreated  AuditAction = "created"
	AuditActionUpdated  AuditAction = "updated"
	AuditActionDeleted  AuditAction = "deleted"
	AuditActionReplaced AuditAction = "replaced"
)

// AuditEntry records when and from where the register was changed.
// IncidentID is nil for whole-register actions.
type AuditEntry struct {
	ID         string      `json:"id"`
	IncidentID *int64      `json:"incident_id"`
	Action     AuditAction `json:"action"`
	RequestID  string      `json:"request_id"`
	RemoteAddr string      `json:"remote_addr"`
	CreatedAt  time.Time   `json:"created_at"`
}
