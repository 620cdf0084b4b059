package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "pingme/internal/app/outbox"
)

// Outbox queues event records in memory for the publishing worker.
// Without a worker attached it simply accumulates and drops on restart.
type Outbox struct {
	mu      sync.Mutex
	pending []*PendingEvent
}

// PendingEvent wraps a record with delivery bookkeeping.
type PendingEvent struct {
	Record      appoutbox.EventRecord
	Attempts    int
	NextAttempt time.Time
	claimed     bool
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, &PendingEvent{Record: record, NextAttempt: time.Now().UTC()})
	return nil
}

// Claim hands out the next due event, or nil when the queue is drained.
func (o *Outbox) Claim(ctx context.Context) (*PendingEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, ev := range o.pending {
		if !ev.claimed && !ev.NextAttempt.After(now) {
			ev.claimed = true
			return ev, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, ev *PendingEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, candidate := range o.pending {
		if candidate == ev {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, ev *PendingEvent, retryAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	ev.Attempts++
	ev.NextAttempt = retryAt
	ev.claimed = false
	return nil
}

// Pending reports the queue depth, mostly for tests and readiness checks.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
