package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions (spec §3). Append-only: never updated or deleted.
const (
	AuditActionAutoMatched   = "auto_matched"
	AuditActionConfirmed     = "confirmed"
	AuditActionRejected      = "rejected"
	AuditActionManualMatched = "manual_matched"
	AuditActionMarkExternal  = "marked_external"
)

// ActorSystem is reserved for worker-written audit rows; performed_by
// otherwise defaults to ActorAdmin when the caller doesn't supply one.
const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
)

// MatchAuditLog is an append-only record of one state transition.
type MatchAuditLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID   uuid.UUID `gorm:"index:idx_audit_tx_created,priority:1"`
	Action          string
	PreviousInvoice *uuid.UUID
	NewInvoice      *uuid.UUID
	PerformedBy     string
	Reason          string
	CreatedAt       time.Time `gorm:"index:idx_audit_tx_created,priority:2,sort:desc"`
}

func (MatchAuditLog) TableName() string { return "match_audit_logs" }
