// Package queue replays locally persisted courier actions against the
// remote order store. Actions are enqueued when the device is offline (or
// a direct apply fails) and flushed once connectivity returns, so state
// transitions are never silently lost. Delivery is at-least-once.
package queue

import (
	"context"
	"log"
	"sync"

	"couriertrack/store"
)

// Applier applies one patch to the remote store. A failure is treated the
// same as "still offline": the action stays queued for the next flush.
type Applier interface {
	Apply(ctx context.Context, targetID string, patch map[string]any) error
}

// SyncRequester asks the platform for a best-effort wake-up-and-flush,
// e.g. by publishing on the sync topic. Absence degrades to flushing only
// on the drainer's own schedule.
type SyncRequester interface {
	RequestSync()
}

// Emitter receives queue lifecycle notifications.
type Emitter interface {
	EmitActionQueued(a *store.QueuedAction)
	EmitActionReplayed(a *store.QueuedAction)
	EmitActionFailed(a *store.QueuedAction, err error)
}

// FlushStats summarizes one flush pass.
type FlushStats struct {
	Attempted int `json:"attempted"`
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
}

type Queue struct {
	db      *store.DB
	applier Applier
	sync    SyncRequester
	emitter Emitter
	batch   int

	mu sync.Mutex // serializes flush passes
}

func New(db *store.DB, applier Applier, batch int) *Queue {
	if batch <= 0 {
		batch = 50
	}
	return &Queue{db: db, applier: applier, batch: batch}
}

// SetSyncRequester wires the optional background-sync registration.
func (q *Queue) SetSyncRequester(s SyncRequester) { q.sync = s }

// SetEmitter wires the optional event emitter.
func (q *Queue) SetEmitter(e Emitter) { q.emitter = e }

// Enqueue persists a deferred action. It must never block or fail the
// user-facing action: a storage failure is logged and surfaced through
// the returned error for observability only.
func (q *Queue) Enqueue(targetID string, patch map[string]any) (*store.QueuedAction, error) {
	a := &store.QueuedAction{TargetID: targetID, Patch: patch}
	if err := q.db.EnqueueAction(a); err != nil {
		log.Printf("queue: enqueue for %s failed: %v", targetID, err)
		return nil, err
	}
	if q.emitter != nil {
		q.emitter.EmitActionQueued(a)
	}
	if q.sync != nil {
		q.sync.RequestSync()
	}
	return a, nil
}

// Flush replays all queued actions in FIFO order by creation time. A
// failed action stays queued and does not block the rest of the list.
// Flushing an empty queue is a no-op.
func (q *Queue) Flush(ctx context.Context) FlushStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats FlushStats
	pending, err := q.db.ListPendingActions(q.batch)
	if err != nil {
		log.Printf("queue: list pending: %v", err)
		return stats
	}

	for _, a := range pending {
		stats.Attempted++
		if err := q.applier.Apply(ctx, a.TargetID, a.Patch); err != nil {
			stats.Failed++
			log.Printf("queue: replay %s for %s failed: %v", a.ID, a.TargetID, err)
			if err := q.db.IncrementActionRetries(a.ID); err != nil {
				log.Printf("queue: bump retries %s: %v", a.ID, err)
			}
			if q.emitter != nil {
				q.emitter.EmitActionFailed(a, err)
			}
			continue
		}
		if err := q.db.DequeueAction(a.ID); err != nil {
			log.Printf("queue: dequeue %s: %v", a.ID, err)
		}
		stats.Replayed++
		if q.emitter != nil {
			q.emitter.EmitActionReplayed(a)
		}
	}
	return stats
}

// Depth returns the number of actions waiting to be replayed.
func (q *Queue) Depth() int {
	n, err := q.db.CountPendingActions()
	if err != nil {
		log.Printf("queue: count pending: %v", err)
		return 0
	}
	return n
}

// Pending lists the waiting actions, oldest first.
func (q *Queue) Pending() ([]*store.QueuedAction, error) {
	return q.db.ListPendingActions(q.batch)
}
