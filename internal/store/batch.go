package store

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"payment-reconciliation-backend/internal/apperr"
	"payment-reconciliation-backend/internal/models"
)

// CreateBatch creates a ReconciliationBatch in status uploading with zero
// counters (spec §4.G create_batch).
func (s *Store) CreateBatch(filename string) (*models.ReconciliationBatch, error) {
	now := nowUTC()
	batch := &models.ReconciliationBatch{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    models.BatchStatusUploading,
		StartedAt: now,
		CreatedAt: now,
	}
	if err := s.db.Create(batch).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindTransientStore, "create batch", err)
	}
	return batch, nil
}

// ResetBatchForProcessing atomically deletes every transaction owned by
// batchID, then resets the batch to status processing with zero counters
// (spec §4.G reset_batch_for_processing). This is what makes batch
// processing idempotent under at-least-once queue redelivery (spec §4.I,
// §8 scenario S7).
func (s *Store) ResetBatchForProcessing(batchID uuid.UUID) error {
	return s.WithTx(func(tx *gorm.DB) error {
		if err := tx.Where("upload_batch_id = ?", batchID).Delete(&models.BankTransaction{}).Error; err != nil {
			return apperr.Wrap(apperr.KindTransientStore, "delete prior transactions", err)
		}
		now := nowUTC()
		result := tx.Model(&models.ReconciliationBatch{}).
			Where("id = ?", batchID).
			Updates(map[string]interface{}{
				"status":              models.BatchStatusProcessing,
				"started_at":          now,
				"total_transactions":  0,
				"processed_count":     0,
				"auto_matched_count":  0,
				"needs_review_count":  0,
				"unmatched_count":     0,
				"completed_at":        nil,
			})
		if result.Error != nil {
			return apperr.Wrap(apperr.KindTransientStore, "reset batch", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("batch %s not found", batchID)
		}
		return nil
	})
}

// SetBatchTotal sets the expected total row count for a batch (spec §4.G
// set_batch_total).
func (s *Store) SetBatchTotal(batchID uuid.UUID, n int) error {
	result := s.db.Model(&models.ReconciliationBatch{}).
		Where("id = ?", batchID).
		Update("total_transactions", n)
	if result.Error != nil {
		return apperr.Wrap(apperr.KindTransientStore, "set batch total", result.Error)
	}
	return nil
}

// CounterDeltas is the set of atomic per-field increments supported by
// IncrementBatchCounters (spec §4.G increment_batch_counters).
type CounterDeltas struct {
	Processed  int
	AutoMatched int
	NeedsReview int
	Unmatched  int
}

// IncrementBatchCounters atomically bumps the requested counters using a
// SQL expression (gorm.Expr), avoiding a read-modify-write race.
func (s *Store) IncrementBatchCounters(batchID uuid.UUID, d CounterDeltas) error {
	updates := map[string]interface{}{}
	if d.Processed != 0 {
		updates["processed_count"] = gorm.Expr("processed_count + ?", d.Processed)
	}
	if d.AutoMatched != 0 {
		updates["auto_matched_count"] = gorm.Expr("auto_matched_count + ?", d.AutoMatched)
	}
	if d.NeedsReview != 0 {
		updates["needs_review_count"] = gorm.Expr("needs_review_count + ?", d.NeedsReview)
	}
	if d.Unmatched != 0 {
		updates["unmatched_count"] = gorm.Expr("unmatched_count + ?", d.Unmatched)
	}
	if len(updates) == 0 {
		return nil
	}
	result := s.db.Model(&models.ReconciliationBatch{}).Where("id = ?", batchID).Updates(updates)
	if result.Error != nil {
		return apperr.Wrap(apperr.KindTransientStore, "increment batch counters", result.Error)
	}
	return nil
}

// SetBatchFinalCounters persists the worker's final in-memory tally in a
// single authoritative update (spec §4.K step 4).
func (s *Store) SetBatchFinalCounters(batchID uuid.UUID, total, autoMatched, needsReview, unmatched int) error {
	result := s.db.Model(&models.ReconciliationBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"total_transactions": total,
			"processed_count":    total,
			"auto_matched_count": autoMatched,
			"needs_review_count": needsReview,
			"unmatched_count":    unmatched,
		})
	if result.Error != nil {
		return apperr.Wrap(apperr.KindTransientStore, "set final batch counters", result.Error)
	}
	return nil
}

// MarkBatchCompleted sets the terminal completed status plus completed_at
// (spec §4.G mark_batch_completed).
func (s *Store) MarkBatchCompleted(batchID uuid.UUID) error {
	return s.markBatchTerminal(batchID, models.BatchStatusCompleted)
}

// MarkBatchFailed sets the terminal failed status plus completed_at
// (spec §4.G mark_batch_failed).
func (s *Store) MarkBatchFailed(batchID uuid.UUID) error {
	return s.markBatchTerminal(batchID, models.BatchStatusFailed)
}

func (s *Store) markBatchTerminal(batchID uuid.UUID, status string) error {
	now := nowUTC()
	result := s.db.Model(&models.ReconciliationBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": &now,
		})
	if result.Error != nil {
		return apperr.Wrap(apperr.KindTransientStore, "mark batch terminal", result.Error)
	}
	return nil
}

// GetBatch fetches a batch by id (spec §4.G get_batch).
func (s *Store) GetBatch(batchID uuid.UUID) (*models.ReconciliationBatch, error) {
	var batch models.ReconciliationBatch
	if err := s.db.First(&batch, "id = ?", batchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("batch %s not found", batchID)
		}
		return nil, apperr.Wrap(apperr.KindTransientStore, "get batch", err)
	}
	return &batch, nil
}

// ListBatches is the offset-paginated batch listing referenced by §6
// `GET /reconciliation`.
func (s *Store) ListBatches(status string, limit, offset int, sortBy, sortOrder string) ([]models.ReconciliationBatch, int64, error) {
	query := s.db.Model(&models.ReconciliationBatch{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindTransientStore, "count batches", err)
	}

	col := "created_at"
	if sortBy == "updatedAt" {
		col = "completed_at"
	}
	order := "DESC"
	if sortOrder == "asc" {
		order = "ASC"
	}

	var batches []models.ReconciliationBatch
	if err := query.Order(col + " " + order).Limit(limit).Offset(offset).Find(&batches).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindTransientStore, "list batches", err)
	}
	return batches, total, nil
}
