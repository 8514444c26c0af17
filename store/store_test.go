package store

import (
	"path/filepath"
	"testing"
	"time"

	"couriertrack/config"
	"couriertrack/geo"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(&config.DatabaseConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// --- Queued action tests ---

func TestEnqueueListDequeue(t *testing.T) {
	db := testDB(t)

	a := &QueuedAction{
		TargetID: "order-1",
		Patch:    map[string]any{"delivery_status": "picked_up"},
	}
	if err := db.EnqueueAction(a); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if a.ID == "" {
		t.Fatal("ID should be assigned")
	}

	pending, err := db.ListPendingActions(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len = %d, want 1", len(pending))
	}
	got := pending[0]
	if got.TargetID != "order-1" {
		t.Errorf("TargetID = %q, want order-1", got.TargetID)
	}
	if got.Patch["delivery_status"] != "picked_up" {
		t.Errorf("Patch = %v, want delivery_status=picked_up", got.Patch)
	}
	if got.Retries != 0 {
		t.Errorf("Retries = %d, want 0", got.Retries)
	}

	if err := db.DequeueAction(a.ID); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	n, _ := db.CountPendingActions()
	if n != 0 {
		t.Errorf("count after dequeue = %d, want 0", n)
	}

	// Dequeue of an absent id is a no-op.
	if err := db.DequeueAction(a.ID); err != nil {
		t.Errorf("second dequeue should be a no-op, got %v", err)
	}
}

func TestListPendingFIFO(t *testing.T) {
	db := testDB(t)

	base := time.Now().Add(-time.Minute)
	for i, status := range []string{"accepted", "picked_up", "delivered"} {
		a := &QueuedAction{
			TargetID:  "order-9",
			Patch:     map[string]any{"delivery_status": status},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.EnqueueAction(a); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	pending, err := db.ListPendingActions(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len = %d, want 3", len(pending))
	}
	want := []string{"accepted", "picked_up", "delivered"}
	for i, a := range pending {
		if a.Patch["delivery_status"] != want[i] {
			t.Errorf("position %d = %v, want %s", i, a.Patch["delivery_status"], want[i])
		}
	}
}

func TestIncrementRetries(t *testing.T) {
	db := testDB(t)

	a := &QueuedAction{TargetID: "order-2", Patch: map[string]any{"status": "completed"}}
	if err := db.EnqueueAction(a); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	db.IncrementActionRetries(a.ID)
	db.IncrementActionRetries(a.ID)

	pending, _ := db.ListPendingActions(10)
	if pending[0].Retries != 2 {
		t.Errorf("Retries = %d, want 2", pending[0].Retries)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	cfg := &config.DatabaseConfig{Path: dbPath}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a := &QueuedAction{TargetID: "order-3", Patch: map[string]any{"delivery_status": "accepted"}}
	if err := db.EnqueueAction(a); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	db.Close()

	db2, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	pending, err := db2.ListPendingActions(10)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("queued action should survive restart, got %v", pending)
	}
}

// --- Trail tests ---

func TestTrail(t *testing.T) {
	db := testDB(t)

	base := time.Now().Add(-10 * time.Minute)
	pts := []geo.Point{
		{Lat: -30.030, Lng: -51.230},
		{Lat: -30.031, Lng: -51.228},
		{Lat: -30.033, Lng: -51.225},
	}
	for i, p := range pts {
		if err := db.AddTrailPoint("order-7", p, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("add point %d: %v", i, err)
		}
	}
	db.AddTrailPoint("order-other", geo.Point{Lat: 1, Lng: 1}, base)

	trail, err := db.ListTrail("order-7")
	if err != nil {
		t.Fatalf("list trail: %v", err)
	}
	if len(trail) != 3 {
		t.Fatalf("len = %d, want 3", len(trail))
	}
	if trail[0].Point.Lat != -30.030 {
		t.Errorf("first point lat = %f, want -30.030", trail[0].Point.Lat)
	}

	last, err := db.LastTrailPoint("order-7")
	if err != nil {
		t.Fatalf("last point: %v", err)
	}
	if last.Point.Lng != -51.225 {
		t.Errorf("last point lng = %f, want -51.225", last.Point.Lng)
	}

	if err := db.DeleteTrail("order-7"); err != nil {
		t.Fatalf("delete trail: %v", err)
	}
	trail, _ = db.ListTrail("order-7")
	if len(trail) != 0 {
		t.Errorf("trail after delete = %d points, want 0", len(trail))
	}
	if last, _ := db.LastTrailPoint("order-other"); last == nil {
		t.Error("other order's trail should be untouched")
	}
}

// --- Admin user tests ---

func TestAdminUsers(t *testing.T) {
	db := testDB(t)

	exists, err := db.AdminUserExists()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("fresh db should have no admin users")
	}

	if err := db.CreateAdminUser("admin", "hash"); err != nil {
		t.Fatalf("create: %v", err)
	}
	u, err := db.GetAdminUser("admin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want hash", u.PasswordHash)
	}
	if _, err := db.GetAdminUser("nobody"); err == nil {
		t.Error("expected error for missing user")
	}
}
