package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one authority-visible entry in the complaint audit trail.
// Records are append-only; the trail exists for accountability, not for
// reconstructing complaint state.
type AuditRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ComplaintID string    `json:"complaint_id" db:"complaint_id"`
	Action      string    `json:"action" db:"action"`
	ActorID     string    `json:"actor_id" db:"actor_id"`
	ActorName   string    `json:"actor_name" db:"actor_name"`
	Detail      string    `json:"detail,omitempty" db:"detail"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Audit actions recorded by the HTTP layer after successful mutations.
const (
	AuditActionCreated       = "created"
	AuditActionStatusChanged = "status_changed"
	AuditActionAssigned      = "assigned"
	AuditActionCommented     = "commented"
)
