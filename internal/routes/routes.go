// Package routes wires the gin route table to the handlers package
// (spec §6). Grounded on the teacher's RegisterRoutes grouping shape,
// generalized to the full path table under a configurable prefix.
package routes

import (
	"github.com/gin-gonic/gin"

	"payment-reconciliation-backend/internal/handlers"
)

// Handlers bundles every handler group routes needs to wire.
type Handlers struct {
	Reconciliation *handlers.ReconciliationHandler
	Transactions   *handlers.TransactionHandler
	Invoices       *handlers.InvoiceHandler
	Health         *handlers.HealthHandler
}

// Register mounts the full §6 HTTP surface under prefix (default
// /api/v1).
func Register(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Health.Health)
	r.GET("/health/live", h.Health.Live)
	r.GET("/health/ready", h.Health.Ready)

	api := r.Group(prefix)

	recon := api.Group("/reconciliation")
	recon.POST("/upload", h.Reconciliation.Upload)
	recon.GET("", h.Reconciliation.ListBatches)
	recon.GET("/:batchId", h.Reconciliation.GetBatchStatus)
	recon.GET("/:batchId/transactions", h.Reconciliation.ListTransactions)
	recon.GET("/:batchId/summary", h.Reconciliation.GetBatchSummary)

	tx := api.Group("/transactions")
	tx.POST("/:id/confirm", h.Transactions.Confirm)
	tx.POST("/:id/reject", h.Transactions.Reject)
	tx.POST("/:id/match", h.Transactions.ManualMatch)
	tx.POST("/:id/external", h.Transactions.MarkExternal)
	tx.POST("/bulk-confirm", h.Transactions.BulkConfirm)
	tx.GET("/:id", h.Transactions.Get)
	tx.GET("/:id/audit", h.Transactions.GetAudit)

	invoices := api.Group("/invoices")
	invoices.GET("/search", h.Invoices.Search)
	invoices.GET("/candidates", h.Invoices.Candidates)
	invoices.GET("/by-number/:n", h.Invoices.GetByNumber)
	invoices.GET("/:id", h.Invoices.GetByID)
	invoices.POST("", h.Invoices.Create)
	invoices.POST("/upload", h.Invoices.BulkUploadCSV)
}
