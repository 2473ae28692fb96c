package worker

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/store"
)

// newTestStore mirrors internal/store's own sqlite test helper; it can't
// be imported directly since store's helper lives in an unexported
// _test.go file in another package.
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
