package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"couriertrack/config"
	"couriertrack/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "queue.db")})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// mockApplier records the order patches are applied in and can be told to
// fail for specific targets.
type mockApplier struct {
	mu      sync.Mutex
	applied []map[string]any
	targets []string
	fail    map[string]error
}

func (m *mockApplier) Apply(_ context.Context, targetID string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[targetID]; err != nil {
		return err
	}
	m.targets = append(m.targets, targetID)
	m.applied = append(m.applied, patch)
	return nil
}

func TestFlushReplaysInOrder(t *testing.T) {
	db := testDB(t)
	applier := &mockApplier{}
	q := New(db, applier, 50)

	base := time.Now().Add(-time.Minute)
	statuses := []string{"accepted", "picked_up", "delivered"}
	for i, s := range statuses {
		a := &store.QueuedAction{
			TargetID:  "order-1",
			Patch:     map[string]any{"delivery_status": s},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.EnqueueAction(a); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	stats := q.Flush(context.Background())
	if stats.Replayed != 3 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 3 replayed", stats)
	}
	for i, s := range statuses {
		if applier.applied[i]["delivery_status"] != s {
			t.Errorf("replay %d = %v, want %s", i, applier.applied[i]["delivery_status"], s)
		}
	}
	if q.Depth() != 0 {
		t.Errorf("depth after flush = %d, want 0", q.Depth())
	}
}

func TestFlushFailureDoesNotBlockRest(t *testing.T) {
	db := testDB(t)
	applier := &mockApplier{fail: map[string]error{"order-a": errors.New("still offline")}}
	q := New(db, applier, 50)

	base := time.Now().Add(-time.Minute)
	db.EnqueueAction(&store.QueuedAction{TargetID: "order-a", Patch: map[string]any{"status": "completed"}, CreatedAt: base})
	db.EnqueueAction(&store.QueuedAction{TargetID: "order-b", Patch: map[string]any{"status": "completed"}, CreatedAt: base.Add(time.Second)})

	stats := q.Flush(context.Background())
	if stats.Replayed != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 replayed 1 failed", stats)
	}
	if len(applier.targets) != 1 || applier.targets[0] != "order-b" {
		t.Fatalf("applied targets = %v, want [order-b]", applier.targets)
	}

	// The failed action stays queued with its retry count bumped.
	pending, err := q.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].TargetID != "order-a" {
		t.Fatalf("pending = %v, want only order-a", pending)
	}
	if pending[0].Retries != 1 {
		t.Errorf("retries = %d, want 1", pending[0].Retries)
	}

	// Once the target recovers, the next flush drains it.
	applier.fail = nil
	stats = q.Flush(context.Background())
	if stats.Replayed != 1 {
		t.Fatalf("second flush stats = %+v, want 1 replayed", stats)
	}
	if q.Depth() != 0 {
		t.Errorf("depth = %d, want 0", q.Depth())
	}
}

func TestFlushEmptyQueue(t *testing.T) {
	q := New(testDB(t), &mockApplier{}, 50)
	stats := q.Flush(context.Background())
	if stats.Attempted != 0 {
		t.Errorf("stats = %+v, want nothing attempted", stats)
	}
}

func TestEnqueueRequestsSync(t *testing.T) {
	db := testDB(t)
	q := New(db, &mockApplier{}, 50)

	requested := 0
	q.SetSyncRequester(syncFunc(func() { requested++ }))

	a, err := q.Enqueue("order-5", map[string]any{"delivery_status": "accepted"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if a.ID == "" {
		t.Error("action should get an id")
	}
	if requested != 1 {
		t.Errorf("sync requested %d times, want 1", requested)
	}
	if q.Depth() != 1 {
		t.Errorf("depth = %d, want 1", q.Depth())
	}
}

type syncFunc func()

func (f syncFunc) RequestSync() { f() }

type flakyPinger struct {
	mu  sync.Mutex
	err error
}

func (p *flakyPinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *flakyPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func TestWatcherFlushesOnReconnect(t *testing.T) {
	db := testDB(t)
	applier := &mockApplier{}
	q := New(db, applier, 50)
	db.EnqueueAction(&store.QueuedAction{TargetID: "order-8", Patch: map[string]any{"delivery_status": "delivered"}})

	pinger := &flakyPinger{err: errors.New("no network")}
	w := NewWatcher(pinger, q, time.Hour)

	var transitions []bool
	w.OnChange(func(online bool) { transitions = append(transitions, online) })

	w.check()
	if w.Online() {
		t.Fatal("watcher should be offline after failed ping")
	}
	if len(applier.targets) != 0 {
		t.Fatal("nothing should be flushed while offline")
	}

	pinger.set(nil)
	w.check()
	if !w.Online() {
		t.Fatal("watcher should be online after successful ping")
	}
	if len(applier.targets) != 1 || applier.targets[0] != "order-8" {
		t.Fatalf("reconnect should flush, applied = %v", applier.targets)
	}
	if len(transitions) != 2 || transitions[0] || !transitions[1] {
		t.Errorf("transitions = %v, want [false true]", transitions)
	}

	// A ping that keeps succeeding does not flush again.
	w.check()
	if len(applier.targets) != 1 {
		t.Errorf("steady online state should not re-flush, applied = %v", applier.targets)
	}
}
