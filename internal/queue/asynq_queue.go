package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// AsynqQueue is the Redis-backed persistent queue (spec §4.I). It reuses
// the same Redis connection as the progress mirror rather than adding a
// second broker to the stack.
type AsynqQueue struct {
	client *asynq.Client
	server *asynq.Server
	opts   Options
	log    *logrus.Entry
}

// NewAsynq connects to addr and returns an AsynqQueue, or an error if
// Redis is unreachable — callers use that to fall back to InProcessQueue
// at startup (spec §4.I: "If the queue is unavailable, the upload path
// falls back to direct in-process execution").
func NewAsynq(addr, password string, db int, opts Options, log *logrus.Entry) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}

	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		inspector.Close()
		return nil, fmt.Errorf("connect to queue backend: %w", err)
	}
	inspector.Close()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    opts.Concurrency,
		Queues:         map[string]int{"default": 1},
		RetryDelayFunc: exponentialRetryDelay,
	})

	return &AsynqQueue{client: client, server: server, opts: opts, log: log}, nil
}

// Enqueue files a batch job with the spec-mandated retry/backoff policy
// (up to MaxAttempts attempts, exponential backoff starting at 1s,
// timeout >= LockDuration).
func (q *AsynqQueue) Enqueue(ctx context.Context, payload BatchJobPayload) error {
	data, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	task := asynq.NewTask(JobName, data)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(q.opts.MaxAttempts-1),
		asynq.Timeout(q.opts.LockDuration),
		asynq.Queue("default"),
	)
	if err != nil {
		return fmt.Errorf("enqueue batch job: %w", err)
	}
	return nil
}

// Run starts the asynq server, dispatching JobName tasks to handler with
// the configured concurrency. Blocks until ctx is cancelled.
func (q *AsynqQueue) Run(ctx context.Context, handler Handler) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(JobName, func(ctx context.Context, t *asynq.Task) error {
		var payload BatchJobPayload
		if err := unmarshalPayload(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal job payload: %w", err)
		}
		return handler(ctx, payload)
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.server.Run(mux)
	}()

	select {
	case <-ctx.Done():
		q.server.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

func (q *AsynqQueue) Close() {
	q.client.Close()
}

// deliveryBackoff is the base of the retry schedule (spec §4.I:
// "exponential backoff starting at 1s").
var deliveryBackoff = time.Second

// exponentialRetryDelay doubles deliveryBackoff per attempt, so a task's
// n-th retry (n starting at 0) waits deliveryBackoff * 2^n.
func exponentialRetryDelay(n int, err error, task *asynq.Task) time.Duration {
	return deliveryBackoff * time.Duration(1<<uint(n))
}
