package store

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"payment-reconciliation-backend/internal/apperr"
	"payment-reconciliation-backend/internal/models"
)

func TestBulkInsertAndGetTransaction(t *testing.T) {
	s := newTestStore(t)
	batchID := uuid.New()
	rows := []models.BankTransaction{
		{ID: uuid.New(), UploadBatchID: batchID, TransactionDate: time.Now().UTC(), Description: "A", Status: models.TxStatusAutoMatched},
		{ID: uuid.New(), UploadBatchID: batchID, TransactionDate: time.Now().UTC(), Description: "B", Status: models.TxStatusUnmatched},
	}
	if err := s.BulkInsertTransactions(rows); err != nil {
		t.Fatalf("BulkInsertTransactions() error: %v", err)
	}

	fetched, err := s.GetTransaction(rows[0].ID)
	if err != nil {
		t.Fatalf("GetTransaction() error: %v", err)
	}
	if fetched.Description != "A" {
		t.Errorf("description = %q, want A", fetched.Description)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTransaction(uuid.New())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestListAuditEntriesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	txID := uuid.New()
	older := models.MatchAuditLog{ID: uuid.New(), TransactionID: txID, Action: models.AuditActionAutoMatched, PerformedBy: models.ActorSystem, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := models.MatchAuditLog{ID: uuid.New(), TransactionID: txID, Action: models.AuditActionConfirmed, PerformedBy: models.ActorAdmin, CreatedAt: time.Now().UTC()}
	if err := s.BulkInsertAudit([]models.MatchAuditLog{older, newer}); err != nil {
		t.Fatalf("BulkInsertAudit() error: %v", err)
	}

	entries, err := s.ListAuditEntries(txID)
	if err != nil {
		t.Fatalf("ListAuditEntries() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != models.AuditActionConfirmed {
		t.Errorf("expected newest-first ordering, got %q first", entries[0].Action)
	}
}

func TestTransactionsInsertedSinceFiltersByBatchAndStatus(t *testing.T) {
	s := newTestStore(t)
	batchID := uuid.New()
	otherBatchID := uuid.New()
	rows := []models.BankTransaction{
		{ID: uuid.New(), UploadBatchID: batchID, TransactionDate: time.Now().UTC(), Description: "A", Status: models.TxStatusAutoMatched},
		{ID: uuid.New(), UploadBatchID: batchID, TransactionDate: time.Now().UTC(), Description: "B", Status: models.TxStatusNeedsReview},
		{ID: uuid.New(), UploadBatchID: otherBatchID, TransactionDate: time.Now().UTC(), Description: "C", Status: models.TxStatusAutoMatched},
	}
	if err := s.BulkInsertTransactions(rows); err != nil {
		t.Fatalf("BulkInsertTransactions() error: %v", err)
	}

	autoMatched, err := s.TransactionsInsertedSince(batchID, models.TxStatusAutoMatched)
	if err != nil {
		t.Fatalf("TransactionsInsertedSince() error: %v", err)
	}
	if len(autoMatched) != 1 || autoMatched[0].Description != "A" {
		t.Fatalf("expected only row A scoped to batch+status, got %+v", autoMatched)
	}
}
