package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"payment-reconciliation-backend/internal/apperr"
	"payment-reconciliation-backend/internal/models"
)

// CursorFilter is the predicate set for ListTransactionsByCursor (spec
// §4.M "Cursor-paginated transaction listing per batch").
type CursorFilter struct {
	BatchID uuid.UUID
	Status  string
	Limit   int
	AfterAt *time.Time
	AfterID *uuid.UUID
}

// ListTransactionsByCursor implements the §4.M keyset scan over
// (created_at DESC, id DESC): it reads limit+1 rows so the caller can
// derive has_more without a second count query.
func (s *Store) ListTransactionsByCursor(f CursorFilter) ([]models.BankTransaction, bool, error) {
	query := s.db.Model(&models.BankTransaction{}).Where("upload_batch_id = ?", f.BatchID)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.AfterAt != nil && f.AfterID != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", *f.AfterAt, *f.AfterAt, *f.AfterID)
	}

	var rows []models.BankTransaction
	err := query.Order("created_at DESC, id DESC").Limit(f.Limit + 1).Find(&rows).Error
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindTransientStore, "list transactions by cursor", err)
	}

	hasMore := len(rows) > f.Limit
	if hasMore {
		rows = rows[:f.Limit]
	}
	return rows, hasMore, nil
}

// BulkInsertTransactions performs one round-trip insert for a chunk of
// transactions (spec §4.G bulk_insert_transactions, §4.K step 3d).
func (s *Store) BulkInsertTransactions(rows []models.BankTransaction) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "bulk insert transactions", err)
	}
	return nil
}

// BulkInsertAudit performs one round-trip insert for a batch of audit
// entries (spec §4.G bulk_insert_audit).
func (s *Store) BulkInsertAudit(entries []models.MatchAuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.db.Create(&entries).Error; err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "bulk insert audit", err)
	}
	return nil
}

// GetTransaction fetches one transaction by id (spec §4.G get_transaction).
func (s *Store) GetTransaction(id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := s.db.First(&tx, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("transaction %s not found", id)
		}
		return nil, apperr.Wrap(apperr.KindTransientStore, "get transaction", err)
	}
	return &tx, nil
}

// ListAuditEntries returns every audit entry for a transaction, newest
// first (spec §6 GET /transactions/:id/audit).
func (s *Store) ListAuditEntries(transactionID uuid.UUID) ([]models.MatchAuditLog, error) {
	var entries []models.MatchAuditLog
	err := s.db.
		Where("transaction_id = ?", transactionID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "list audit entries", err)
	}
	return entries, nil
}

// TransactionsInsertedSince recovers the ids of transactions inserted for
// a batch with status auto_matched, used by the worker to build its
// post-insert audit rows (spec §4.K step 5: "a bounded secondary query to
// recover inserted transaction ids").
func (s *Store) TransactionsInsertedSince(batchID uuid.UUID, status string) ([]models.BankTransaction, error) {
	var rows []models.BankTransaction
	err := s.db.
		Where("upload_batch_id = ? AND status = ?", batchID, status).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "recover inserted transactions", err)
	}
	return rows, nil
}
