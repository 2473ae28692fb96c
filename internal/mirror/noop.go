package mirror

import "github.com/google/uuid"

// NoopMirror is the null-object implementation activated when Redis is
// unavailable at startup (spec §9 "graceful degradation": capability
// interfaces with null implementations selectable at startup"). Every
// write is a no-op; every read reports a miss, so callers fall back to
// the authoritative store exactly as they would for a cache miss.
type NoopMirror struct{}

func (NoopMirror) Init(uuid.UUID) error                { return nil }
func (NoopMirror) SetTotal(uuid.UUID, int) error        { return nil }
func (NoopMirror) Increment(uuid.UUID, Increment) error { return nil }
func (NoopMirror) SetStatus(uuid.UUID, string) error    { return nil }
func (NoopMirror) Get(uuid.UUID) (*Counters, bool)      { return nil, false }
func (NoopMirror) Clear(uuid.UUID) error                { return nil }
