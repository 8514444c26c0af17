package position

import (
	"context"
	"testing"
	"time"

	"couriertrack/geo"
)

func TestCurrentNoFix(t *testing.T) {
	f := NewFeed(50*time.Millisecond, time.Minute)
	start := time.Now()
	_, ok := f.Current(context.Background())
	if ok {
		t.Fatal("expected no position")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("returned after %v, expected to wait out the timeout", elapsed)
	}
}

func TestCurrentFreshFix(t *testing.T) {
	f := NewFeed(50*time.Millisecond, time.Minute)
	f.Update(geo.Point{Lat: -30.03, Lng: -51.23}, time.Now())

	p, ok := f.Current(context.Background())
	if !ok {
		t.Fatal("expected position")
	}
	if p.Lat != -30.03 {
		t.Errorf("Lat = %f, want -30.03", p.Lat)
	}
}

func TestCurrentStaleFix(t *testing.T) {
	f := NewFeed(50*time.Millisecond, time.Minute)
	f.Update(geo.Point{Lat: 1, Lng: 1}, time.Now().Add(-2*time.Minute))

	if _, ok := f.Current(context.Background()); ok {
		t.Fatal("stale fix should not satisfy Current")
	}

	// Latest still exposes it for display purposes.
	if _, ok := f.Latest(); !ok {
		t.Fatal("Latest should return the stale fix")
	}
}

func TestCurrentWakesOnUpdate(t *testing.T) {
	f := NewFeed(time.Second, time.Minute)

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Update(geo.Point{Lat: 5, Lng: 6}, time.Now())
	}()

	start := time.Now()
	p, ok := f.Current(context.Background())
	if !ok {
		t.Fatal("expected position after update")
	}
	if p.Lng != 6 {
		t.Errorf("Lng = %f, want 6", p.Lng)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Current should return promptly after the update")
	}
}

func TestCurrentContextCancel(t *testing.T) {
	f := NewFeed(time.Second, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, ok := f.Current(ctx); ok {
		t.Fatal("cancelled context should yield no position")
	}
}

func TestHandleMessage(t *testing.T) {
	f := NewFeed(50*time.Millisecond, time.Minute)

	f.HandleMessage([]byte(`{"lat":-30.1,"lng":-51.2}`))
	fix, ok := f.Latest()
	if !ok {
		t.Fatal("expected fix after HandleMessage")
	}
	if fix.Point.Lng != -51.2 {
		t.Errorf("Lng = %f, want -51.2", fix.Point.Lng)
	}

	// Invalid coordinates and garbage are dropped.
	f.HandleMessage([]byte(`{"lat":99,"lng":0}`))
	fix2, _ := f.Latest()
	if fix2.Point.Lat == 99 {
		t.Error("invalid fix should be dropped")
	}
	f.HandleMessage([]byte(`nope`))
}
