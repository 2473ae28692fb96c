// Package worker is the batch worker (spec §4.K): consumes one job,
// streams rows, groups by amount, fetches candidates in bulk, runs the
// matcher, bulk-writes outcomes, updates counters, and writes per-row
// audit entries for auto-matches. Grounded on the teacher's
// processCSV background goroutine, restructured into the chunked,
// bulk-query pipeline the spec requires.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"payment-reconciliation-backend/internal/csvstream"
	"payment-reconciliation-backend/internal/matching"
	"payment-reconciliation-backend/internal/mirror"
	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/store"
)

// ChunkSize bounds worker memory at O(ChunkSize) and is the unit of
// bulk query/insert (spec §4.K).
const ChunkSize = 1000

// Worker processes reconciliation-batch-processing jobs.
type Worker struct {
	store  *store.Store
	mirror mirror.Mirror
	log    *logrus.Entry
}

func New(s *store.Store, m mirror.Mirror, log *logrus.Entry) *Worker {
	return &Worker{store: s, mirror: m, log: log}
}

// Process runs the full pipeline for one batch (spec §4.K). It is
// idempotent w.r.t. redelivery of the same batchID because step 1 clears
// any partial transactions from a prior, interrupted attempt.
func (w *Worker) Process(ctx context.Context, batchID uuid.UUID, filePath string) error {
	log := w.log.WithField("batch_id", batchID.String())
	log.Info("starting batch processing")

	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("failed to clean up uploaded file")
		}
	}()

	if err := w.store.ResetBatchForProcessing(batchID); err != nil {
		return w.fail(batchID, log, fmt.Errorf("reset batch for processing: %w", err))
	}
	mirrorWarn(w.mirror.Init(batchID), log, "init")

	file, err := os.Open(filePath)
	if err != nil {
		return w.fail(batchID, log, fmt.Errorf("open uploaded file: %w", err))
	}
	defer file.Close()

	parser, err := csvstream.New(file)
	if err != nil {
		return w.fail(batchID, log, fmt.Errorf("parse CSV header: %w", err))
	}

	totals := runningTotals{}
	buffer := make([]*csvstream.ParsedRow, 0, ChunkSize)

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		if err := w.processChunk(batchID, buffer, &totals); err != nil {
			return err
		}
		mirrorWarn(w.mirror.Increment(batchID, mirror.Increment{
			Processed:   totals.sinceLastFlushProcessed,
			AutoMatched: totals.sinceLastFlushAuto,
			NeedsReview: totals.sinceLastFlushReview,
			Unmatched:   totals.sinceLastFlushUnmatched,
		}), log, "increment")
		totals.resetFlushDeltas()
		buffer = buffer[:0]
		return nil
	}

	for {
		row, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return w.fail(batchID, log, fmt.Errorf("read CSV row: %w", err))
		}
		buffer = append(buffer, row)
		if len(buffer) >= ChunkSize {
			if err := flush(); err != nil {
				return w.fail(batchID, log, err)
			}
		}
	}
	if err := flush(); err != nil {
		return w.fail(batchID, log, err)
	}

	if err := w.store.SetBatchFinalCounters(batchID, totals.total, totals.autoMatched, totals.needsReview, totals.unmatched); err != nil {
		return w.fail(batchID, log, fmt.Errorf("set final counters: %w", err))
	}

	if err := w.writeAutoMatchAudit(batchID); err != nil {
		return w.fail(batchID, log, fmt.Errorf("write auto-match audit: %w", err))
	}

	if err := w.store.MarkBatchCompleted(batchID); err != nil {
		return w.fail(batchID, log, fmt.Errorf("mark batch completed: %w", err))
	}
	mirrorWarn(w.mirror.SetStatus(batchID, models.BatchStatusCompleted), log, "set status")
	mirrorWarn(w.mirror.Clear(batchID), log, "clear")

	log.WithFields(logrus.Fields{
		"total":        totals.total,
		"auto_matched": totals.autoMatched,
		"needs_review": totals.needsReview,
		"unmatched":    totals.unmatched,
	}).Info("batch processing completed")

	return nil
}

// runningTotals tracks the worker's in-memory counters across chunks
// (spec §4.K step 3d: "Update running in-memory counters").
type runningTotals struct {
	total       int
	autoMatched int
	needsReview int
	unmatched   int

	sinceLastFlushProcessed int
	sinceLastFlushAuto      int
	sinceLastFlushReview    int
	sinceLastFlushUnmatched int
}

func (t *runningTotals) resetFlushDeltas() {
	t.sinceLastFlushProcessed = 0
	t.sinceLastFlushAuto = 0
	t.sinceLastFlushReview = 0
	t.sinceLastFlushUnmatched = 0
}

// processChunk implements spec §4.K step 3: collect unique amounts, one
// bulk candidate query, run the matcher per row, one bulk insert.
func (w *Worker) processChunk(batchID uuid.UUID, rows []*csvstream.ParsedRow, totals *runningTotals) error {
	amountSet := map[string]decimal.Decimal{}
	for _, r := range rows {
		amountSet[r.Amount.StringFixed(2)] = r.Amount
	}
	amounts := make([]decimal.Decimal, 0, len(amountSet))
	for _, amt := range amountSet {
		amounts = append(amounts, amt)
	}

	candidatesByAmount, err := w.store.FindCandidateInvoicesByAmounts(amounts)
	if err != nil {
		return fmt.Errorf("find candidate invoices: %w", err)
	}

	txRows := make([]models.BankTransaction, 0, len(rows))
	for _, r := range rows {
		key := r.Amount.StringFixed(2)
		storeCandidates := candidatesByAmount[key]

		matchCandidates := make([]matching.Candidate, len(storeCandidates))
		for i, c := range storeCandidates {
			matchCandidates[i] = matching.Candidate{
				ID:            c.ID,
				InvoiceNumber: c.InvoiceNumber,
				CustomerName:  c.CustomerName,
				DueDate:       c.DueDate,
			}
		}

		result := matching.Match(matching.Transaction{
			Description:     r.Description,
			TransactionDate: r.TransactionDate,
		}, matchCandidates)

		status := mapStatus(result.Status)
		detailsJSON, _ := json.Marshal(result.Breakdown)

		score := decimal.NewFromFloat(result.Score)

		txRows = append(txRows, models.BankTransaction{
			ID:               uuid.New(),
			UploadBatchID:    batchID,
			TransactionDate:  r.TransactionDate,
			Description:      r.Description,
			Amount:           r.Amount,
			ReferenceNumber:  r.ReferenceNumber,
			Status:           status,
			MatchedInvoiceID: result.MatchedInvoiceID,
			ConfidenceScore:  &score,
			MatchDetails:     detailsJSON,
		})

		totals.total++
		totals.sinceLastFlushProcessed++
		switch status {
		case models.TxStatusAutoMatched:
			totals.autoMatched++
			totals.sinceLastFlushAuto++
		case models.TxStatusNeedsReview:
			totals.needsReview++
			totals.sinceLastFlushReview++
		default:
			totals.unmatched++
			totals.sinceLastFlushUnmatched++
		}
	}

	if err := w.store.BulkInsertTransactions(txRows); err != nil {
		return fmt.Errorf("bulk insert transactions: %w", err)
	}
	return nil
}

// writeAutoMatchAudit implements spec §4.K step 5: a bounded secondary
// query recovers inserted transaction ids, followed by one bulk audit
// insert. Only auto_matched transactions get a worker-written audit row
// (spec §9 Open Question: needs_review/unmatched are intentionally not
// audited by the worker).
func (w *Worker) writeAutoMatchAudit(batchID uuid.UUID) error {
	autoMatched, err := w.store.TransactionsInsertedSince(batchID, models.TxStatusAutoMatched)
	if err != nil {
		return err
	}

	entries := make([]models.MatchAuditLog, 0, len(autoMatched))
	for _, tx := range autoMatched {
		if tx.MatchedInvoiceID == nil {
			continue
		}
		confidence := "0"
		if tx.ConfidenceScore != nil {
			confidence = tx.ConfidenceScore.StringFixed(2)
		}
		entries = append(entries, models.MatchAuditLog{
			ID:              uuid.New(),
			TransactionID:   tx.ID,
			Action:          models.AuditActionAutoMatched,
			PreviousInvoice: nil,
			NewInvoice:      tx.MatchedInvoiceID,
			PerformedBy:     models.ActorSystem,
			Reason:          fmt.Sprintf("Auto-matched with %s%% confidence", confidence),
			CreatedAt:       tx.CreatedAt,
		})
	}

	return w.store.BulkInsertAudit(entries)
}

func (w *Worker) fail(batchID uuid.UUID, log *logrus.Entry, cause error) error {
	log.WithError(cause).Error("batch processing failed")
	if err := w.store.MarkBatchFailed(batchID); err != nil {
		log.WithError(err).Error("failed to mark batch as failed")
	}
	mirrorWarn(w.mirror.SetStatus(batchID, models.BatchStatusFailed), log, "set status")
	mirrorWarn(w.mirror.Clear(batchID), log, "clear")
	return cause
}

func mapStatus(s matching.Status) string {
	switch s {
	case matching.StatusAutoMatched:
		return models.TxStatusAutoMatched
	case matching.StatusNeedsReview:
		return models.TxStatusNeedsReview
	default:
		return models.TxStatusUnmatched
	}
}

// mirrorWarn logs a mirror failure without propagating it (spec §7
// mirror_error: "swallowed; logged; never propagated").
func mirrorWarn(err error, log *logrus.Entry, op string) {
	if err != nil && log != nil {
		log.WithError(err).WithField("mirror_op", op).Warn("progress mirror write failed")
	}
}
