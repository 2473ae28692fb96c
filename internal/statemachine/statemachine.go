// Package statemachine is the transaction state machine (spec §4.L):
// validates and applies admin actions atomically with audit writes.
// Grounded on the teacher's ConfirmTransaction/RejectTransaction/
// ManualMatchTransaction/MarkTransactionExternal/BulkConfirmAutoMatched
// methods, rewritten as a transition table executed inside a single
// database transaction with a WHERE-status guard on every UPDATE.
package statemachine

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"payment-reconciliation-backend/internal/apperr"
	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/store"
)

// StateMachine applies admin actions to transactions.
type StateMachine struct {
	store *store.Store
}

func New(s *store.Store) *StateMachine {
	return &StateMachine{store: s}
}

// allowedFrom maps each action to the set of current statuses it may be
// applied from (spec §4.L transition table).
var allowedFrom = map[string]map[string]struct{}{
	models.AuditActionConfirmed: {
		models.TxStatusAutoMatched: {},
		models.TxStatusNeedsReview: {},
	},
	models.AuditActionRejected: {
		models.TxStatusAutoMatched: {},
		models.TxStatusNeedsReview: {},
	},
	models.AuditActionManualMatched: {
		models.TxStatusNeedsReview: {},
		models.TxStatusUnmatched:   {},
	},
	models.AuditActionMarkExternal: {
		models.TxStatusUnmatched: {},
	},
}

func defaultActor(actor string) string {
	if actor == "" {
		return models.ActorAdmin
	}
	return actor
}

// Confirm transitions auto_matched|needs_review -> confirmed, leaving
// matched_invoice_id unchanged (spec §4.L "confirm"). Returns the id of
// the audit entry it appended, so callers can surface it (spec §6
// `200 {transaction, auditLogId}`).
func (sm *StateMachine) Confirm(id uuid.UUID, performedBy string) (*models.BankTransaction, uuid.UUID, error) {
	var result models.BankTransaction
	auditID := uuid.New()
	err := sm.store.WithTx(func(tx *gorm.DB) error {
		current, err := reread(tx, id)
		if err != nil {
			return err
		}
		if !allowed(models.AuditActionConfirmed, current.Status) {
			return apperr.InvalidState("cannot confirm transaction in status %q", current.Status)
		}

		guarded := tx.Model(&models.BankTransaction{}).
			Where("id = ? AND status = ?", id, current.Status).
			Update("status", models.TxStatusConfirmed)
		if guarded.Error != nil {
			return apperr.Wrap(apperr.KindTransientStore, "confirm transaction", guarded.Error)
		}
		if guarded.RowsAffected == 0 {
			return apperr.InvalidState("transaction %s changed state concurrently", id)
		}

		audit := models.MatchAuditLog{
			ID:              auditID,
			TransactionID:   id,
			Action:          models.AuditActionConfirmed,
			PreviousInvoice: current.MatchedInvoiceID,
			NewInvoice:      current.MatchedInvoiceID,
			PerformedBy:     defaultActor(performedBy),
		}
		if err := tx.Create(&audit).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "append audit entry", err)
		}

		return reloadInto(tx, id, &result)
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	return &result, auditID, nil
}

// Reject transitions auto_matched|needs_review -> unmatched, clearing
// matched_invoice_id (spec §4.L "reject"). Returns the id of the audit
// entry it appended.
func (sm *StateMachine) Reject(id uuid.UUID, reason, performedBy string) (*models.BankTransaction, uuid.UUID, error) {
	var result models.BankTransaction
	auditID := uuid.New()
	err := sm.store.WithTx(func(tx *gorm.DB) error {
		current, err := reread(tx, id)
		if err != nil {
			return err
		}
		if !allowed(models.AuditActionRejected, current.Status) {
			return apperr.InvalidState("cannot reject transaction in status %q", current.Status)
		}

		guarded := tx.Model(&models.BankTransaction{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(map[string]interface{}{
				"status":             models.TxStatusUnmatched,
				"matched_invoice_id": nil,
			})
		if guarded.Error != nil {
			return apperr.Wrap(apperr.KindTransientStore, "reject transaction", guarded.Error)
		}
		if guarded.RowsAffected == 0 {
			return apperr.InvalidState("transaction %s changed state concurrently", id)
		}

		audit := models.MatchAuditLog{
			ID:              auditID,
			TransactionID:   id,
			Action:          models.AuditActionRejected,
			PreviousInvoice: current.MatchedInvoiceID,
			NewInvoice:      nil,
			PerformedBy:     defaultActor(performedBy),
			Reason:          reason,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "append audit entry", err)
		}

		return reloadInto(tx, id, &result)
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	return &result, auditID, nil
}

// ManualMatch transitions needs_review|unmatched -> confirmed, setting
// matched_invoice_id to the supplied invoice (spec §4.L "manual_match").
// Requires the invoice to exist. Returns the id of the audit entry it
// appended.
func (sm *StateMachine) ManualMatch(id, invoiceID uuid.UUID, reason, performedBy string) (*models.BankTransaction, uuid.UUID, error) {
	var result models.BankTransaction
	auditID := uuid.New()
	err := sm.store.WithTx(func(tx *gorm.DB) error {
		current, err := reread(tx, id)
		if err != nil {
			return err
		}
		if !allowed(models.AuditActionManualMatched, current.Status) {
			return apperr.InvalidState("cannot manual-match transaction in status %q", current.Status)
		}

		var invoiceCount int64
		if err := tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Count(&invoiceCount).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "check invoice exists", err)
		}
		if invoiceCount == 0 {
			return apperr.BadRequest("invoice %s does not exist", invoiceID)
		}

		guarded := tx.Model(&models.BankTransaction{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(map[string]interface{}{
				"status":             models.TxStatusConfirmed,
				"matched_invoice_id": invoiceID,
			})
		if guarded.Error != nil {
			return apperr.Wrap(apperr.KindTransientStore, "manual match transaction", guarded.Error)
		}
		if guarded.RowsAffected == 0 {
			return apperr.InvalidState("transaction %s changed state concurrently", id)
		}

		audit := models.MatchAuditLog{
			ID:              auditID,
			TransactionID:   id,
			Action:          models.AuditActionManualMatched,
			PreviousInvoice: current.MatchedInvoiceID,
			NewInvoice:      &invoiceID,
			PerformedBy:     defaultActor(performedBy),
			Reason:          reason,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "append audit entry", err)
		}

		return reloadInto(tx, id, &result)
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	return &result, auditID, nil
}

// MarkExternal transitions unmatched -> external, clearing
// matched_invoice_id (spec §4.L "mark_external"). Returns the id of the
// audit entry it appended.
func (sm *StateMachine) MarkExternal(id uuid.UUID, reason, performedBy string) (*models.BankTransaction, uuid.UUID, error) {
	var result models.BankTransaction
	auditID := uuid.New()
	err := sm.store.WithTx(func(tx *gorm.DB) error {
		current, err := reread(tx, id)
		if err != nil {
			return err
		}
		if !allowed(models.AuditActionMarkExternal, current.Status) {
			return apperr.InvalidState("cannot mark transaction external in status %q", current.Status)
		}

		guarded := tx.Model(&models.BankTransaction{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(map[string]interface{}{
				"status":             models.TxStatusExternal,
				"matched_invoice_id": nil,
			})
		if guarded.Error != nil {
			return apperr.Wrap(apperr.KindTransientStore, "mark transaction external", guarded.Error)
		}
		if guarded.RowsAffected == 0 {
			return apperr.InvalidState("transaction %s changed state concurrently", id)
		}

		audit := models.MatchAuditLog{
			ID:              auditID,
			TransactionID:   id,
			Action:          models.AuditActionMarkExternal,
			PreviousInvoice: current.MatchedInvoiceID,
			NewInvoice:      nil,
			PerformedBy:     defaultActor(performedBy),
			Reason:          reason,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "append audit entry", err)
		}

		return reloadInto(tx, id, &result)
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	return &result, auditID, nil
}

// BulkConfirmAutoMatched confirms every auto_matched transaction in a
// batch (spec §4.L "bulk_confirm_auto"). Each candidate is transitioned
// by its own guarded UPDATE (WHERE status = auto_matched), same as
// Confirm, and only gets an audit entry if that UPDATE actually affected
// a row. This matters under concurrency (spec §5, §8 scenario S5/S8): a
// row-level UPDATE blocks until a competing transaction touching the
// same row commits, then re-evaluates its WHERE guard against the
// post-commit state — so a transaction that loses the race to confirm a
// row sees RowsAffected == 0 for it and skips the audit entry, rather
// than auditing a row it never actually transitioned.
func (sm *StateMachine) BulkConfirmAutoMatched(batchID uuid.UUID, performedBy string) ([]uuid.UUID, error) {
	var confirmedIDs []uuid.UUID

	err := sm.store.WithTx(func(tx *gorm.DB) error {
		var candidates []models.BankTransaction
		if err := tx.Where("upload_batch_id = ? AND status = ?", batchID, models.TxStatusAutoMatched).
			Find(&candidates).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "select auto-matched transactions", err)
		}
		if len(candidates) == 0 {
			return nil
		}

		entries := make([]models.MatchAuditLog, 0, len(candidates))
		for _, c := range candidates {
			guarded := tx.Model(&models.BankTransaction{}).
				Where("id = ? AND status = ?", c.ID, models.TxStatusAutoMatched).
				Update("status", models.TxStatusConfirmed)
			if guarded.Error != nil {
				return apperr.Wrap(apperr.KindTransientStore, "bulk confirm transactions", guarded.Error)
			}
			if guarded.RowsAffected == 0 {
				continue
			}

			entries = append(entries, models.MatchAuditLog{
				ID:              uuid.New(),
				TransactionID:   c.ID,
				Action:          models.AuditActionConfirmed,
				PreviousInvoice: c.MatchedInvoiceID,
				NewInvoice:      c.MatchedInvoiceID,
				PerformedBy:     defaultActor(performedBy),
				Reason:          "Bulk confirmation of auto-matched transactions",
			})
			confirmedIDs = append(confirmedIDs, c.ID)
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.Create(&entries).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "bulk insert audit entries", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmedIDs, nil
}

func allowed(action, currentStatus string) bool {
	set, ok := allowedFrom[action]
	if !ok {
		return false
	}
	_, ok = set[currentStatus]
	return ok
}

func reread(tx *gorm.DB, id uuid.UUID) (*models.BankTransaction, error) {
	var current models.BankTransaction
	if err := tx.First(&current, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("transaction %s not found", id)
		}
		return nil, apperr.Wrap(apperr.KindTransientStore, "reread transaction", err)
	}
	return &current, nil
}

func reloadInto(tx *gorm.DB, id uuid.UUID, out *models.BankTransaction) error {
	if err := tx.First(out, "id = ?", id).Error; err != nil {
		return apperr.Wrap(apperr.KindTransientStore, "reload transaction", err)
	}
	return nil
}
