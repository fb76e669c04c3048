package domain

import "time"

// AuditEntry is a persisted audit log row.
type AuditEntry struct {
	ID         string
	UserID     *string
	Action     string
	EntityType string
	EntityID   *string
	IPAddress  string
	UserAgent  string
	Metadata   map[string]any
	Timestamp  time.Time
}
