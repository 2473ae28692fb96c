package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-reconciliation-backend/internal/mirror"
	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/query"
	"payment-reconciliation-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seedTxHandlerTransaction(t *testing.T, s *store.Store, status string) uuid.UUID {
	t.Helper()
	tx := models.BankTransaction{
		ID:              uuid.New(),
		UploadBatchID:   uuid.New(),
		TransactionDate: time.Now(),
		Description:     "Test Payer",
		Amount:          decimal.NewFromFloat(42),
		Status:          status,
	}
	if err := s.BulkInsertTransactions([]models.BankTransaction{tx}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx.ID
}

func newRouterForTx(h *TransactionHandler) *gin.Engine {
	r := gin.New()
	r.POST("/transactions/:id/confirm", h.Confirm)
	r.POST("/transactions/:id/reject", h.Reject)
	r.GET("/transactions/:id", h.Get)
	return r
}

func TestConfirmEndpointReturns200AndUpdatesStatus(t *testing.T) {
	s, txHandler, _, _ := newTestHandlers(t)
	id := seedTxHandlerTransaction(t, s, models.TxStatusAutoMatched)
	r := newRouterForTx(txHandler)

	body, _ := json.Marshal(actorPayload{PerformedBy: "alice"})
	req := httptest.NewRequest(http.MethodPost, "/transactions/"+id.String()+"/confirm", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	updated, err := s.GetTransaction(id)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if updated.Status != models.TxStatusConfirmed {
		t.Fatalf("status = %q, want confirmed", updated.Status)
	}
}

func TestConfirmEndpointRejectsInvalidTransition(t *testing.T) {
	s, txHandler, _, _ := newTestHandlers(t)
	id := seedTxHandlerTransaction(t, s, models.TxStatusConfirmed)
	r := newRouterForTx(txHandler)

	req := httptest.NewRequest(http.MethodPost, "/transactions/"+id.String()+"/confirm", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// invalid_state maps to 400 (spec §7), not 409: the taxonomy has no
	// dedicated conflict status.
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Success {
		t.Fatal("expected success=false in error envelope")
	}
}

func TestConfirmEndpointRejectsMalformedID(t *testing.T) {
	_, txHandler, _, _ := newTestHandlers(t)
	r := newRouterForTx(txHandler)

	req := httptest.NewRequest(http.MethodPost, "/transactions/not-a-uuid/confirm", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}

func TestGetEndpointIncludesAuditTrail(t *testing.T) {
	s, txHandler, _, _ := newTestHandlers(t)
	id := seedTxHandlerTransaction(t, s, models.TxStatusAutoMatched)
	r := newRouterForTx(txHandler)

	confirmBody, _ := json.Marshal(actorPayload{PerformedBy: "bob"})
	confirmReq := httptest.NewRequest(http.MethodPost, "/transactions/"+id.String()+"/confirm", bytes.NewReader(confirmBody))
	confirmReq.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), confirmReq)

	req := httptest.NewRequest(http.MethodGet, "/transactions/"+id.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Audit []models.MatchAuditLog `json:"audit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Audit) != 1 || resp.Audit[0].Action != "confirmed" {
		t.Fatalf("audit = %+v, want one confirmed entry", resp.Audit)
	}
}

func newMultipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf, writer.FormDataContentType()
}

func TestUploadCreatesBatchAndEnqueuesJob(t *testing.T) {
	_, _, reconHandler, enq := newTestHandlers(t)
	r := gin.New()
	r.POST("/reconciliation/upload", reconHandler.Upload)

	body, contentType := newMultipartUpload(t, "batch.csv", "transaction_date,description,amount\n2026-01-01,Foo,10.00\n")
	req := httptest.NewRequest(http.MethodPost, "/reconciliation/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	enq.mu.Lock()
	defer enq.mu.Unlock()
	if len(enq.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(enq.enqueued))
	}
}

func TestUploadFallsBackToInProcessOnEnqueueFailure(t *testing.T) {
	s := newTestStore(t)
	qs := query.New(s)
	primary := &fakeEnqueuer{failWith: errors.New("broker unreachable")}
	fallback := &fakeEnqueuer{}
	reconHandler := NewReconciliationHandler(s, qs, mirror.NoopMirror{}, primary, fallback, t.TempDir(), 10<<20, testLogger())

	r := gin.New()
	r.POST("/reconciliation/upload", reconHandler.Upload)

	body, contentType := newMultipartUpload(t, "batch.csv", "transaction_date,description,amount\n2026-01-01,Foo,10.00\n")
	req := httptest.NewRequest(http.MethodPost, "/reconciliation/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	primary.mu.Lock()
	primaryCount := len(primary.enqueued)
	primary.mu.Unlock()
	if primaryCount != 1 {
		t.Fatalf("primary enqueue attempts = %d, want 1", primaryCount)
	}

	fallback.mu.Lock()
	defer fallback.mu.Unlock()
	if len(fallback.enqueued) != 1 {
		t.Fatalf("fallback enqueued %d jobs, want 1", len(fallback.enqueued))
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	_, _, reconHandler, _ := newTestHandlers(t)
	r := gin.New()
	r.POST("/reconciliation/upload", reconHandler.Upload)

	req := httptest.NewRequest(http.MethodPost, "/reconciliation/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}
