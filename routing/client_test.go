package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/twpayne/go-polyline"

	"couriertrack/geo"
)

func testServer(handler http.HandlerFunc) (*httptest.Server, *Client) {
	srv := httptest.NewServer(handler)
	client := NewClient(srv.URL, "driving", 5*time.Second)
	return srv, client
}

func osrmBody(distance, duration float64, coords [][]float64) string {
	encoded := string(polyline.EncodeCoords(coords))
	return fmt.Sprintf(`{"code":"Ok","routes":[{"distance":%f,"duration":%f,"geometry":%q}]}`,
		distance, duration, encoded)
}

func TestRoute(t *testing.T) {
	coords := [][]float64{
		{-30.0277, -51.2287},
		{-30.0301, -51.2250},
		{-30.0344, -51.2198},
	}
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
			t.Errorf("path = %q, want /route/v1/driving/...", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("overview") != "full" {
			t.Errorf("overview = %q, want full", q.Get("overview"))
		}
		fmt.Fprint(w, osrmBody(4210.5, 612.3, coords))
	})
	defer srv.Close()

	route, err := client.Route(context.Background(),
		geo.Point{Lat: -30.0277, Lng: -51.2287},
		geo.Point{Lat: -30.0344, Lng: -51.2198})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if route.DistanceMeters != 4210.5 {
		t.Errorf("DistanceMeters = %f, want 4210.5", route.DistanceMeters)
	}
	if len(route.Geometry) != 3 {
		t.Fatalf("geometry length = %d, want 3", len(route.Geometry))
	}
	// Polyline encoding quantizes to 1e-5 degrees.
	if d := route.Geometry[0].Lat - coords[0][0]; d > 1e-4 || d < -1e-4 {
		t.Errorf("first point lat = %f, want ~%f", route.Geometry[0].Lat, coords[0][0])
	}
	if route.ETAMinutes() < 10 || route.ETAMinutes() > 11 {
		t.Errorf("ETAMinutes = %f, want ~10.2", route.ETAMinutes())
	}
}

func TestRouteNoRoute(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	})
	defer srv.Close()

	_, err := client.Route(context.Background(), geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2})
	if err == nil {
		t.Fatal("expected error for NoRoute response")
	}
}

func TestRouteHTTPError(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.Route(context.Background(), geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestRouteMalformedBody(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	})
	defer srv.Close()

	_, err := client.Route(context.Background(), geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2})
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestRouteInvalidCoordinates(t *testing.T) {
	client := NewClient("http://unused", "driving", time.Second)
	_, err := client.Route(context.Background(), geo.Point{Lat: 95, Lng: 0}, geo.Point{Lat: 0, Lng: 0})
	if err == nil {
		t.Fatal("expected error for invalid origin")
	}
}

func TestProviderCaches(t *testing.T) {
	var calls int64
	coords := [][]float64{{0, 0}, {0.001, 0.001}}
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, osrmBody(100, 60, coords))
	})
	defer srv.Close()

	p := NewProvider(client, nil)
	origin := geo.Point{Lat: 0, Lng: 0}
	dest := geo.Point{Lat: 0.001, Lng: 0.001}

	r1, err := p.Get(context.Background(), "order-1", origin, dest)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	r2, err := p.Get(context.Background(), "order-1", origin, dest)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if r1 != r2 {
		t.Error("expected same cached route instance")
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}

	// A different key triggers a fresh fetch.
	if _, err := p.Get(context.Background(), "order-2", origin, dest); err != nil {
		t.Fatalf("third Get: %v", err)
	}
	if n := atomic.LoadInt64(&calls); n != 2 {
		t.Errorf("backend calls = %d, want 2", n)
	}

	p.Forget("order-1")
	if _, ok := p.Cached("order-1"); ok {
		t.Error("Forget should drop the entry")
	}
}

func TestProviderFailureIsNotCached(t *testing.T) {
	var calls int64
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	defer srv.Close()

	p := NewProvider(client, nil)
	origin := geo.Point{Lat: 0, Lng: 0}
	dest := geo.Point{Lat: 1, Lng: 1}

	if _, err := p.Get(context.Background(), "k", origin, dest); err == nil {
		t.Fatal("expected error")
	}
	if _, err := p.Get(context.Background(), "k", origin, dest); err == nil {
		t.Fatal("expected error on retry")
	}
	if n := atomic.LoadInt64(&calls); n != 2 {
		t.Errorf("backend calls = %d, want 2 (failures not cached)", n)
	}
}
