// Package mirror implements the progress mirror (spec §4.H): a
// fast-path, advisory counter store for in-flight batches. Every read
// falls back to the authoritative store; every write is best-effort and
// logged, never propagated (spec §7 mirror_error).
package mirror

import "github.com/google/uuid"

// Counters is the per-batch tally the mirror tracks.
type Counters struct {
	Total       int    `json:"total"`
	Processed   int    `json:"processed"`
	AutoMatched int    `json:"auto_matched"`
	NeedsReview int    `json:"needs_review"`
	Unmatched   int    `json:"unmatched"`
	Status      string `json:"status"`
}

// Increment is the set of per-field deltas Increment applies atomically.
type Increment struct {
	Processed   int
	AutoMatched int
	NeedsReview int
	Unmatched   int
}

// Mirror is the capability interface the worker writes through and the
// reconciliation handler's in-flight status read consults first, falling
// back to the authoritative store on a miss. A Redis-backed implementation
// and a Noop implementation both satisfy it (spec §9 "graceful
// degradation": code paths must not branch on availability except inside
// the implementation).
type Mirror interface {
	Init(batchID uuid.UUID) error
	SetTotal(batchID uuid.UUID, n int) error
	Increment(batchID uuid.UUID, inc Increment) error
	SetStatus(batchID uuid.UUID, status string) error
	Get(batchID uuid.UUID) (*Counters, bool)
	Clear(batchID uuid.UUID) error
}
