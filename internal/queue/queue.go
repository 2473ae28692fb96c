// Package queue implements the persistent, retrying job queue (spec
// §4.I) and its in-process fallback. Both satisfy the same narrow
// Enqueuer interface so the upload handler never branches on which one
// is active (spec §9 "graceful degradation").
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobName is the queue job name spec §6 fixes for batch processing.
const JobName = "reconciliation-batch-processing"

// BatchJobPayload is the persisted job payload (spec §6 "Queue job
// payload").
type BatchJobPayload struct {
	BatchID  uuid.UUID `json:"batchId"`
	FilePath string    `json:"filePath"`
}

func (p BatchJobPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

func unmarshalPayload(data []byte, out *BatchJobPayload) error {
	return json.Unmarshal(data, out)
}

// Handler processes one batch job. It must be idempotent w.r.t.
// redelivery of the same BatchID (spec §4.I: achieved by the worker's
// reset_batch_for_processing call, not by anything in this package).
type Handler func(ctx context.Context, payload BatchJobPayload) error

// Enqueuer is the capability the upload handler depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload BatchJobPayload) error
}

// Options configures retry/backoff/lock/concurrency per spec §4.I:
// up to 3 attempts, exponential backoff starting at 1s, lock_duration
// >= 60s, concurrency default 2.
type Options struct {
	Concurrency  int
	LockDuration time.Duration
	MaxAttempts  int
}

// DefaultOptions returns the spec-mandated minimums.
func DefaultOptions() Options {
	return Options{
		Concurrency:  2,
		LockDuration: 90 * time.Second,
		MaxAttempts:  3,
	}
}
