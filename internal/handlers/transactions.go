package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"payment-reconciliation-backend/internal/statemachine"
	"payment-reconciliation-backend/internal/store"
)

// TransactionHandler serves the per-transaction admin actions and reads
// (spec §6 `/transactions/*`).
type TransactionHandler struct {
	store        *store.Store
	stateMachine *statemachine.StateMachine
}

func NewTransactionHandler(s *store.Store, sm *statemachine.StateMachine) *TransactionHandler {
	return &TransactionHandler{store: s, stateMachine: sm}
}

type actorPayload struct {
	PerformedBy string `json:"performedBy"`
}

// Confirm handles POST /transactions/:id/confirm.
func (h *TransactionHandler) Confirm(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var payload actorPayload
	_ = c.ShouldBindJSON(&payload)

	tx, auditID, err := h.stateMachine.Confirm(id, payload.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"transaction": tx, "auditLogId": auditID})
}

type rejectPayload struct {
	Reason      string `json:"reason"`
	PerformedBy string `json:"performedBy"`
}

// Reject handles POST /transactions/:id/reject.
func (h *TransactionHandler) Reject(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var payload rejectPayload
	_ = c.ShouldBindJSON(&payload)

	tx, auditID, err := h.stateMachine.Reject(id, payload.Reason, payload.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"transaction": tx, "auditLogId": auditID})
}

type manualMatchPayload struct {
	InvoiceID   string `json:"invoiceId"`
	Reason      string `json:"reason"`
	PerformedBy string `json:"performedBy"`
}

// ManualMatch handles POST /transactions/:id/match.
func (h *TransactionHandler) ManualMatch(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var payload manualMatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		badRequest(c, "invoiceId is not a valid UUID: %q", payload.InvoiceID)
		return
	}

	tx, auditID, err := h.stateMachine.ManualMatch(id, invoiceID, payload.Reason, payload.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"transaction": tx, "auditLogId": auditID})
}

// MarkExternal handles POST /transactions/:id/external.
func (h *TransactionHandler) MarkExternal(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var payload rejectPayload
	_ = c.ShouldBindJSON(&payload)

	tx, auditID, err := h.stateMachine.MarkExternal(id, payload.Reason, payload.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"transaction": tx, "auditLogId": auditID})
}

type bulkConfirmPayload struct {
	BatchID     string `json:"batchId"`
	PerformedBy string `json:"performedBy"`
}

// BulkConfirm handles POST /transactions/bulk-confirm.
func (h *TransactionHandler) BulkConfirm(c *gin.Context) {
	var payload bulkConfirmPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	batchID, err := uuid.Parse(payload.BatchID)
	if err != nil {
		badRequest(c, "batchId is not a valid UUID: %q", payload.BatchID)
		return
	}

	confirmed, err := h.stateMachine.BulkConfirmAutoMatched(batchID, payload.PerformedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"confirmedCount": len(confirmed), "transactionIds": confirmed})
}

// Get handles GET /transactions/:id: the transaction plus its matched
// invoice (if any) plus its audit trail.
func (h *TransactionHandler) Get(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	tx, err := h.store.GetTransaction(id)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"transaction": tx}

	if tx.MatchedInvoiceID != nil {
		if invoice, err := h.store.GetInvoice(*tx.MatchedInvoiceID); err == nil {
			resp["matchedInvoice"] = invoice
		}
	}

	audit, err := h.store.ListAuditEntries(id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp["audit"] = audit

	ok(c, resp)
}

// GetAudit handles GET /transactions/:id/audit.
func (h *TransactionHandler) GetAudit(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.store.ListAuditEntries(id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"audit": entries})
}
