package store

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"payment-reconciliation-backend/internal/models"
)

// newTestStore opens an isolated in-memory sqlite database per test,
// mirroring the migrations Open runs against postgres in production. Each
// test gets its own named in-memory database so parallel tests never
// collide, and the pool is capped at one connection so every query in a
// test sees the same memory-backed schema.
func newTestStore(t *testing.T) *Store {
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
	return New(db)
}
