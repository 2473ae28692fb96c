package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// keyTTL bounds how long a stale batch's counters linger in Redis after
// the batch goes terminal; the worker's Clear call removes them as soon
// as the batch completes or fails.
const keyTTL = 24 * time.Hour

// RedisMirror is the Redis-backed implementation named in spec §4.H/§6
// ("Redis is optional; absence activates in-process fallback").
type RedisMirror struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewRedis pings addr and returns a RedisMirror, or an error if Redis is
// unreachable — callers use that error to fall back to NoopMirror at
// startup (spec §9 graceful degradation).
func NewRedis(addr, password string, db int, log *logrus.Entry) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisMirror{client: client, log: log}, nil
}

func key(batchID uuid.UUID) string {
	return "reconciliation:progress:" + batchID.String()
}

func (m *RedisMirror) Init(batchID uuid.UUID) error {
	return m.write(batchID, Counters{Status: "processing"})
}

func (m *RedisMirror) SetTotal(batchID uuid.UUID, n int) error {
	c, ok := m.Get(batchID)
	if !ok {
		c = &Counters{}
	}
	c.Total = n
	return m.write(batchID, *c)
}

func (m *RedisMirror) Increment(batchID uuid.UUID, inc Increment) error {
	c, ok := m.Get(batchID)
	if !ok {
		c = &Counters{}
	}
	c.Processed += inc.Processed
	c.AutoMatched += inc.AutoMatched
	c.NeedsReview += inc.NeedsReview
	c.Unmatched += inc.Unmatched
	return m.write(batchID, *c)
}

func (m *RedisMirror) SetStatus(batchID uuid.UUID, status string) error {
	c, ok := m.Get(batchID)
	if !ok {
		c = &Counters{}
	}
	c.Status = status
	return m.write(batchID, *c)
}

func (m *RedisMirror) Get(batchID uuid.UUID) (*Counters, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	raw, err := m.client.Get(ctx, key(batchID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			m.logError("get", batchID, err)
		}
		return nil, false
	}

	var c Counters
	if err := json.Unmarshal(raw, &c); err != nil {
		m.logError("unmarshal", batchID, err)
		return nil, false
	}
	return &c, true
}

func (m *RedisMirror) Clear(batchID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.client.Del(ctx, key(batchID)).Err(); err != nil {
		m.logError("clear", batchID, err)
		return err
	}
	return nil
}

func (m *RedisMirror) write(batchID uuid.UUID, c Counters) error {
	raw, err := json.Marshal(c)
	if err != nil {
		m.logError("marshal", batchID, err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.client.Set(ctx, key(batchID), raw, keyTTL).Err(); err != nil {
		m.logError("set", batchID, err)
		return err
	}
	return nil
}

// logError swallows the error for the caller (mirror errors never
// propagate, spec §7 mirror_error) but still records it for operators.
func (m *RedisMirror) logError(op string, batchID uuid.UUID, err error) {
	if m.log == nil {
		return
	}
	m.log.WithError(err).WithFields(logrus.Fields{
		"op":       op,
		"batch_id": batchID.String(),
	}).Warn("progress mirror operation failed, falling back to authoritative store")
}
