package models

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationBatch statuses (spec §3). Terminal states are completed
// and failed; completed_at is set iff the status is one of those two.
const (
	BatchStatusUploading  = "uploading"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// ReconciliationBatch tracks one CSV upload session and its counters.
// Invariant (terminal state): ProcessedCount == AutoMatchedCount +
// NeedsReviewCount + UnmatchedCount, and ProcessedCount <= TotalTransactions.
type ReconciliationBatch struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Filename          string
	TotalTransactions int
	ProcessedCount    int
	AutoMatchedCount  int
	NeedsReviewCount  int
	UnmatchedCount    int
	Status            string `gorm:"index"`
	StartedAt         time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
}

func (ReconciliationBatch) TableName() string { return "reconciliation_batches" }
