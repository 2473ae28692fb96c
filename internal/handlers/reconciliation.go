package handlers

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"payment-reconciliation-backend/internal/apperr"
	"payment-reconciliation-backend/internal/mirror"
	"payment-reconciliation-backend/internal/query"
	"payment-reconciliation-backend/internal/queue"
	"payment-reconciliation-backend/internal/store"
)

// ReconciliationHandler serves the batch lifecycle endpoints (spec §6
// `/reconciliation/*`).
type ReconciliationHandler struct {
	store            *store.Store
	query            *query.Service
	mirror           mirror.Mirror
	enqueuer         queue.Enqueuer
	fallbackEnqueuer queue.Enqueuer
	uploadDir        string
	maxUploadBytes   int64
	log              *logrus.Entry
}

// NewReconciliationHandler wires the batch lifecycle endpoints. fallback
// is used to run a batch job in-process when enq.Enqueue fails at
// request time (spec §4.I, §7 transient_queue_error) — distinct from the
// enqueuer already being in-process because the persistent queue was
// unreachable at startup (spec §9 graceful degradation).
func NewReconciliationHandler(s *store.Store, q *query.Service, m mirror.Mirror, enq, fallback queue.Enqueuer, uploadDir string, maxUploadBytes int64, log *logrus.Entry) *ReconciliationHandler {
	return &ReconciliationHandler{store: s, query: q, mirror: m, enqueuer: enq, fallbackEnqueuer: fallback, uploadDir: uploadDir, maxUploadBytes: maxUploadBytes, log: log}
}

// Upload accepts a multipart CSV, creates a batch row, persists the file
// under uploadDir, and enqueues the processing job (spec §6 POST
// /reconciliation/upload). A runtime enqueue failure on the primary queue
// falls back to fallbackEnqueuer so the batch still gets processed instead
// of being stranded in "uploading" (spec §7 transient_queue_error).
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart file field %q is required", "file")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		badRequest(c, "file exceeds maximum upload size of %d bytes", h.maxUploadBytes)
		return
	}

	batch, err := h.store.CreateBatch(fileHeader.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "prepare upload directory", err))
		return
	}
	destPath := filepath.Join(h.uploadDir, batch.ID.String()+".csv")
	if err := c.SaveUploadedFile(fileHeader, destPath); err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "persist uploaded file", err))
		return
	}

	payload := queue.BatchJobPayload{BatchID: batch.ID, FilePath: destPath}
	if err := h.enqueuer.Enqueue(c.Request.Context(), payload); err != nil {
		h.log.WithError(err).WithField("batch_id", batch.ID.String()).
			Warn("enqueue failed, falling back to in-process processing")
		if fallbackErr := h.fallbackEnqueuer.Enqueue(c.Request.Context(), payload); fallbackErr != nil {
			respondError(c, apperr.Wrap(apperr.KindTransientQueue, "enqueue batch job", fallbackErr))
			return
		}
	}

	accepted(c, gin.H{"batchId": batch.ID})
}

// ListBatches serves the offset-paginated batch listing (spec §6 GET
// /reconciliation).
func (h *ReconciliationHandler) ListBatches(c *gin.Context) {
	status := c.Query("status")
	limit := clampInt(queryInt(c, "limit", 20), 1, 100)
	offset := queryInt(c, "offset", 0)
	sortBy := c.DefaultQuery("sortBy", "createdAt")
	sortOrder := c.DefaultQuery("sortOrder", "desc")

	batches, total, err := h.store.ListBatches(status, limit, offset, sortBy, sortOrder)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, gin.H{"batches": batches, "total": total, "limit": limit, "offset": offset})
}

// GetBatchStatus serves batch status + progress percentage (spec §6 GET
// /reconciliation/:batchId). In-flight batches are read from the
// progress mirror's fast path first (spec §4.H "get(batch_id) ->
// counters|null", §5 "write-many, read-many"); the mirror misses once a
// batch goes terminal (the worker clears it), so completed/failed
// batches always fall through to the authoritative store below.
func (h *ReconciliationHandler) GetBatchStatus(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "batchId")
	if err != nil {
		respondError(c, err)
		return
	}

	batch, err := h.store.GetBatch(batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	if counters, found := h.mirror.Get(batchID); found {
		batch.TotalTransactions = counters.Total
		batch.ProcessedCount = counters.Processed
		batch.AutoMatchedCount = counters.AutoMatched
		batch.NeedsReviewCount = counters.NeedsReview
		batch.UnmatchedCount = counters.Unmatched
		if counters.Status != "" {
			batch.Status = counters.Status
		}
	}

	progressPercent := 0.0
	if batch.TotalTransactions > 0 {
		progressPercent = float64(batch.ProcessedCount) / float64(batch.TotalTransactions) * 100
	}

	ok(c, gin.H{
		"batch":           batch,
		"progressPercent": progressPercent,
	})
}

// ListTransactions serves the cursor-paginated per-batch transaction page
// (spec §6 GET /reconciliation/:batchId/transactions).
func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "batchId")
	if err != nil {
		respondError(c, err)
		return
	}

	status := c.Query("status")
	cursor := c.Query("cursor")
	limit := clampInt(queryInt(c, "limit", 50), 1, 100)

	page, err := h.query.ListTransactions(batchID, status, cursor, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"data": page.Data, "hasMore": page.HasMore}
	if page.NextCursor != "" {
		resp["nextCursor"] = page.NextCursor
	}
	ok(c, resp)
}

// GetBatchSummary serves the derived batch summary (spec §6 GET
// /reconciliation/:batchId/summary).
func (h *ReconciliationHandler) GetBatchSummary(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "batchId")
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.query.GetBatchSummary(batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, summary)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.BadRequest("%s is not a valid UUID: %q", name, raw)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
