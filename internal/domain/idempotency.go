package domain

import "time"

// Idempotency records the outcome of a completed unsafe request, keyed by
// (scope, key). A retried request with the same Idempotency-Key inside the TTL
// window is answered from ResourceID instead of re-running its side effects.
//
// Scope namespaces keys per operation (e.g. "accounts.create") so the same
// client key can be reused across unrelated endpoints.
type Idempotency struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	Scope      string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_idem_scope_key,priority:1"`
	Key        string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_scope_key,priority:2"`
	ResourceID string    `gorm:"type:char(36);not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
