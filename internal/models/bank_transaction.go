package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BankTransaction statuses form the closed vocabulary enforced by the
// transaction state machine (spec §4.L).
const (
	TxStatusPending     = "pending"
	TxStatusAutoMatched = "auto_matched"
	TxStatusNeedsReview = "needs_review"
	TxStatusUnmatched   = "unmatched"
	TxStatusConfirmed   = "confirmed"
	TxStatusExternal    = "external"
)

// BankTransaction is created by the worker and mutated only by the state
// machine; it is deleted only when its owning batch is reprocessed
// (spec §4.G reset_batch_for_processing).
type BankTransaction struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UploadBatchID    uuid.UUID `gorm:"index:idx_tx_batch_listing,priority:1"`
	TransactionDate  time.Time
	Description      string
	Amount           decimal.Decimal `gorm:"type:numeric(14,2);index"`
	ReferenceNumber  *string
	Status           string     `gorm:"index:idx_tx_batch_listing,priority:2"`
	MatchedInvoiceID *uuid.UUID `gorm:"index"`
	ConfidenceScore  *decimal.Decimal `gorm:"type:numeric(5,2)"`
	MatchDetails     datatypes.JSON
	CreatedAt        time.Time `gorm:"index:idx_tx_batch_listing,priority:3,sort:desc"`
}

func (BankTransaction) TableName() string { return "bank_transactions" }
