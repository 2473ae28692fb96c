package handlers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"payment-reconciliation-backend/internal/mirror"
	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/query"
	"payment-reconciliation-backend/internal/queue"
	"payment-reconciliation-backend/internal/statemachine"
	"payment-reconciliation-backend/internal/store"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log.WithField("component", "handlers_test")
}

// fakeEnqueuer records every payload it's given instead of dispatching
// anywhere, so Upload tests can assert on it without a real queue.
type fakeEnqueuer struct {
	mu       sync.Mutex
	enqueued []queue.BatchJobPayload
	failWith error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, payload queue.BatchJobPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, payload)
	return f.failWith
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Invoice{},
		&models.BankTransaction{},
		&models.ReconciliationBatch{},
		&models.MatchAuditLog{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return store.New(db)
}

// newTestHandlers wires a TransactionHandler and ReconciliationHandler
// against a fresh in-memory store, mirroring cmd/server's production
// wiring without the HTTP server/queue/mirror.
func newTestHandlers(t *testing.T) (*store.Store, *TransactionHandler, *ReconciliationHandler, *fakeEnqueuer) {
	t.Helper()
	s := newTestStore(t)
	sm := statemachine.New(s)
	qs := query.New(s)
	enq := &fakeEnqueuer{}
	fallback := &fakeEnqueuer{}
	txHandler := NewTransactionHandler(s, sm)
	reconHandler := NewReconciliationHandler(s, qs, mirror.NoopMirror{}, enq, fallback, t.TempDir(), 10<<20, testLogger())
	return s, txHandler, reconHandler, enq
}
