// Package store is the authoritative store (spec §4.G): the durable
// system of record for invoices, transactions, batches, and audit
// entries, and the only component that owns cross-entity invariants.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"payment-reconciliation-backend/internal/models"
)

// Store wraps a *gorm.DB and exposes the operations spec §4.G names.
// Grounded on the teacher's internal/repository/*.go, generalized with
// the bulk, cursor, and transactional operations the spec requires.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres and runs AutoMigrate for the four core
// tables, mirroring the teacher's cmd/server/main.go wiring.
func Open(dsn string, gormLogLevel logger.LogLevel) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Invoice{},
		&models.BankTransaction{},
		&models.ReconciliationBatch{},
		&models.MatchAuditLog{},
	); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an already-open *gorm.DB (used by tests against sqlite).
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

// WithTx executes fn inside a transaction, rolling back on any error
// (spec §4.G with_tx, §4.L "every action MUST execute inside with_tx").
func (s *Store) WithTx(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

// nowUTC centralizes "now" so callers that need a consistent timestamp
// across several field writes in one call see the same value.
func nowUTC() time.Time {
	return time.Now().UTC()
}
