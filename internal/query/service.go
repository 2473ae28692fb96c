package query

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"payment-reconciliation-backend/internal/models"
	"payment-reconciliation-backend/internal/store"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 100
)

// Service is the read-only query layer sitting in front of the store for
// the listing/search/summary endpoints (spec §4.M).
type Service struct {
	store *store.Store
}

func New(s *store.Store) *Service {
	return &Service{store: s}
}

// TransactionPage is one page of the cursor scan over a batch's
// transactions.
type TransactionPage struct {
	Data       []models.BankTransaction
	NextCursor string
	HasMore    bool
}

// ListTransactions runs the keyset scan described in spec §4.M, replacing
// a non-positive limit with defaultTransactionLimit, capping it at
// maxTransactionLimit, and decoding the caller-supplied cursor, if any.
func (s *Service) ListTransactions(batchID uuid.UUID, status, cursor string, limit int) (*TransactionPage, error) {
	if _, err := s.store.GetBatch(batchID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	filter := store.CursorFilter{BatchID: batchID, Status: status, Limit: limit}
	if cursor != "" {
		createdAt, id, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		filter.AfterAt = &createdAt
		filter.AfterID = &id
	}

	rows, hasMore, err := s.store.ListTransactionsByCursor(filter)
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Data: rows, HasMore: hasMore}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// SearchInvoices wraps store.SearchInvoices, the thin pass-through spec
// §4.M expects of the query service for manual-match invoice lookup.
func (s *Service) SearchInvoices(f store.InvoiceSearchFilter) ([]models.Invoice, error) {
	return s.store.SearchInvoices(f)
}

// BatchSummary is the derived view spec §4.M describes: batch counters
// plus timing and per-class rates.
type BatchSummary struct {
	BatchID           uuid.UUID `json:"batchId"`
	Status            string    `json:"status"`
	TotalTransactions int       `json:"totalTransactions"`
	ProcessedCount    int       `json:"processedCount"`
	AutoMatchedCount  int       `json:"autoMatchedCount"`
	NeedsReviewCount  int       `json:"needsReviewCount"`
	UnmatchedCount    int       `json:"unmatchedCount"`
	DurationMs        *int64    `json:"durationMs"`
	DurationHuman     *string   `json:"durationHuman"`
	RowsPerSec        *float64  `json:"rowsPerSec"`
	AutoMatchedRate   int       `json:"autoMatchedRatePercent"`
	NeedsReviewRate   int       `json:"needsReviewRatePercent"`
	UnmatchedRate     int       `json:"unmatchedRatePercent"`
}

// GetBatchSummary computes the derived summary for one batch (spec §4.M
// "Batch summary"). duration_ms and rows_per_sec are nil until the batch
// reaches a terminal state.
func (s *Service) GetBatchSummary(batchID uuid.UUID) (*BatchSummary, error) {
	batch, err := s.store.GetBatch(batchID)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{
		BatchID:           batch.ID,
		Status:            batch.Status,
		TotalTransactions: batch.TotalTransactions,
		ProcessedCount:    batch.ProcessedCount,
		AutoMatchedCount:  batch.AutoMatchedCount,
		NeedsReviewCount:  batch.NeedsReviewCount,
		UnmatchedCount:    batch.UnmatchedCount,
		AutoMatchedRate:   ratePercent(batch.AutoMatchedCount, batch.ProcessedCount),
		NeedsReviewRate:   ratePercent(batch.NeedsReviewCount, batch.ProcessedCount),
		UnmatchedRate:     ratePercent(batch.UnmatchedCount, batch.ProcessedCount),
	}

	if batch.CompletedAt != nil {
		durationMs := batch.CompletedAt.Sub(batch.StartedAt).Milliseconds()
		summary.DurationMs = &durationMs
		human := humanDuration(durationMs)
		summary.DurationHuman = &human

		if durationMs > 0 {
			rps := float64(batch.ProcessedCount) / float64(durationMs) * 1000
			summary.RowsPerSec = &rps
		}
	}

	return summary, nil
}

func ratePercent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func humanDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	minutes := int(d / time.Minute)
	seconds := d % time.Minute
	secondsFloat := seconds.Seconds()
	if minutes == 0 {
		return fmt.Sprintf("%.1fs", secondsFloat)
	}
	return fmt.Sprintf("%dm %.1fs", minutes, secondsFloat)
}
