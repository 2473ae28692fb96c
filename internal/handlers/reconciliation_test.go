package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"payment-reconciliation-backend/internal/mirror"
	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/query"
)

// fakeMirror lets a test hand the handler a fixed hit for one batch,
// without standing up Redis.
type fakeMirror struct {
	mirror.NoopMirror
	hits map[uuid.UUID]mirror.Counters
}

func (f fakeMirror) Get(batchID uuid.UUID) (*mirror.Counters, bool) {
	c, ok := f.hits[batchID]
	if !ok {
		return nil, false
	}
	return &c, true
}

func TestGetBatchStatusReportsProgressPercent(t *testing.T) {
	s, _, reconHandler, _ := newTestHandlers(t)
	batch, err := s.CreateBatch("batch.csv")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if err := s.SetBatchFinalCounters(batch.ID, 10, 6, 2, 2); err != nil {
		t.Fatalf("set counters: %v", err)
	}

	r := gin.New()
	r.GET("/reconciliation/:batchId", reconHandler.GetBatchStatus)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/"+batch.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		ProgressPercent float64                    `json:"progressPercent"`
		Batch           models.ReconciliationBatch `json:"batch"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ProgressPercent != 100 {
		t.Fatalf("progressPercent = %v, want 100", resp.ProgressPercent)
	}
}

func TestGetBatchStatusPrefersMirrorOverStoreWhenPresent(t *testing.T) {
	s := newTestStore(t)
	batch, err := s.CreateBatch("batch.csv")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	// Store still says in-flight with no progress; the mirror reports
	// further along, and its counters must win.
	m := fakeMirror{hits: map[uuid.UUID]mirror.Counters{
		batch.ID: {Total: 10, Processed: 4, AutoMatched: 3, NeedsReview: 1, Status: models.BatchStatusProcessing},
	}}
	reconHandler := NewReconciliationHandler(s, query.New(s), m, &fakeEnqueuer{}, &fakeEnqueuer{}, t.TempDir(), 10<<20, testLogger())

	r := gin.New()
	r.GET("/reconciliation/:batchId", reconHandler.GetBatchStatus)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/"+batch.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		ProgressPercent float64                    `json:"progressPercent"`
		Batch           models.ReconciliationBatch `json:"batch"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Batch.ProcessedCount != 4 || resp.Batch.TotalTransactions != 10 {
		t.Fatalf("batch = %+v, want mirror counters (processed=4, total=10)", resp.Batch)
	}
	if resp.ProgressPercent != 40 {
		t.Fatalf("progressPercent = %v, want 40", resp.ProgressPercent)
	}
}

func TestGetBatchStatusUnknownBatchReturns404(t *testing.T) {
	_, _, reconHandler, _ := newTestHandlers(t)
	r := gin.New()
	r.GET("/reconciliation/:batchId", reconHandler.GetBatchStatus)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/"+"00000000-0000-0000-0000-000000000000", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", w.Code, w.Body.String())
	}
}

func TestListTransactionsEndpointPaginates(t *testing.T) {
	s, _, reconHandler, _ := newTestHandlers(t)
	batch, err := s.CreateBatch("batch.csv")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	rows := make([]models.BankTransaction, 3)
	for i := range rows {
		rows[i] = models.BankTransaction{
			ID:            uuid.New(),
			UploadBatchID: batch.ID,
			Status:        models.TxStatusUnmatched,
		}
	}
	if err := s.BulkInsertTransactions(rows); err != nil {
		t.Fatalf("seed transactions: %v", err)
	}

	r := gin.New()
	r.GET("/reconciliation/:batchId/transactions", reconHandler.ListTransactions)

	req := httptest.NewRequest(http.MethodGet, "/reconciliation/"+batch.ID.String()+"/transactions?limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data       []models.BankTransaction `json:"data"`
		HasMore    bool                     `json:"hasMore"`
		NextCursor string                   `json:"nextCursor"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 || !resp.HasMore || resp.NextCursor == "" {
		t.Fatalf("resp = %+v, want 2 rows + hasMore + cursor", resp)
	}
}
