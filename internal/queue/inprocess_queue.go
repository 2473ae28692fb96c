package queue

import (
	"context"

	"github.com/sirupsen/logrus"
)

// InProcessQueue is the graceful fallback used when the persistent queue
// backend is unreachable (spec §4.I, §7 transient_queue_error): the
// batch still completes, just without cross-process retries. Grounded
// on the teacher's `go h.processCSV(batch.ID, file)` fire-and-forget
// goroutine dispatch.
type InProcessQueue struct {
	handler Handler
	log     *logrus.Entry
}

// NewInProcess wires a handler to run directly, bypassing any broker.
func NewInProcess(handler Handler, log *logrus.Entry) *InProcessQueue {
	return &InProcessQueue{handler: handler, log: log}
}

// Enqueue runs the handler in a new goroutine immediately. There is no
// retry: a failure is logged and surfaces only through the batch's
// failed status in the authoritative store.
func (q *InProcessQueue) Enqueue(ctx context.Context, payload BatchJobPayload) error {
	go func() {
		if err := q.handler(context.Background(), payload); err != nil {
			if q.log != nil {
				q.log.WithError(err).WithField("batch_id", payload.BatchID.String()).
					Error("in-process batch job failed (no retry available without the persistent queue)")
			}
		}
	}()
	return nil
}
