package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses (spec §3). The set is closed; only non-paid invoices
// are ever returned as match candidates.
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// Invoice is created externally (seed) and mutated only to set paid;
// this module never deletes one.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceNumber string          `gorm:"uniqueIndex;not null"`
	CustomerName  string          `gorm:"index;not null"`
	CustomerEmail string
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);index:idx_invoice_amount_status"`
	Status        string          `gorm:"index:idx_invoice_amount_status;not null"`
	DueDate       time.Time       `gorm:"index"`
	PaidAt        *time.Time
	CreatedAt     time.Time
}

func (Invoice) TableName() string { return "invoices" }
