package geo

import (
	"math"
	"testing"
)

func TestPointValid(t *testing.T) {
	cases := []struct {
		p    Point
		want bool
	}{
		{Point{Lat: 0, Lng: 0}, true},
		{Point{Lat: -90, Lng: 180}, true},
		{Point{Lat: 90, Lng: -180}, true},
		{Point{Lat: 91, Lng: 0}, false},
		{Point{Lat: 0, Lng: -181}, false},
	}
	for _, c := range cases {
		if got := c.p.Valid(); got != c.want {
			t.Errorf("Valid(%+v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestLocalXY(t *testing.T) {
	// On the equator one degree of longitude is ~111320 m.
	x, y := LocalXY(Point{Lat: 0, Lng: 1})
	if math.Abs(x-111320) > 1 {
		t.Errorf("x = %f, want ~111320", x)
	}
	if y != 0 {
		t.Errorf("y = %f, want 0", y)
	}

	// Longitude shrinks with cos(lat).
	x, _ = LocalXY(Point{Lat: 60, Lng: 1})
	want := 111320 * math.Cos(60*math.Pi/180)
	if math.Abs(x-want) > 1 {
		t.Errorf("x at lat 60 = %f, want %f", x, want)
	}
}

func TestDistanceToSegmentClamping(t *testing.T) {
	// Horizontal segment ~1km long on the equator.
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 0.01}

	// Point far beyond endpoint a: distance must equal point-to-a distance.
	p := Point{Lat: 0, Lng: -0.02}
	got := DistanceToSegment(p, a, b)
	want := DistanceToSegment(p, a, a)
	if math.Abs(got-want) > 0.001 {
		t.Errorf("beyond start: got %f, want %f", got, want)
	}

	// Point far beyond endpoint b.
	p = Point{Lat: 0, Lng: 0.03}
	got = DistanceToSegment(p, a, b)
	want = DistanceToSegment(p, b, b)
	if math.Abs(got-want) > 0.001 {
		t.Errorf("beyond end: got %f, want %f", got, want)
	}

	// Point above the middle: perpendicular distance.
	p = Point{Lat: 0.001, Lng: 0.005}
	got = DistanceToSegment(p, a, b)
	want = 0.001 * 111320
	if math.Abs(got-want) > 1 {
		t.Errorf("perpendicular: got %f, want ~%f", got, want)
	}
}

func TestDistanceToSegmentDegenerate(t *testing.T) {
	a := Point{Lat: 10, Lng: 20}
	p := Point{Lat: 10.001, Lng: 20}
	got := DistanceToSegment(p, a, a)
	want := 0.001 * 111320
	if math.Abs(got-want) > 1 {
		t.Errorf("degenerate segment: got %f, want ~%f", got, want)
	}
}

func TestMinDistanceToPolyline(t *testing.T) {
	line := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.01},
		{Lat: 0.01, Lng: 0.01},
		{Lat: 0.01, Lng: 0.02},
	}
	p := Point{Lat: 0.002, Lng: 0.005}

	min, ok := MinDistanceToPolyline(p, line)
	if !ok {
		t.Fatal("expected ok")
	}

	// Must be <= every individual segment distance and equal to one of them.
	matched := false
	for i := 0; i < len(line)-1; i++ {
		d := DistanceToSegment(p, line[i], line[i+1])
		if min > d+1e-9 {
			t.Errorf("min %f exceeds segment %d distance %f", min, i, d)
		}
		if math.Abs(min-d) < 1e-9 {
			matched = true
		}
	}
	if !matched {
		t.Error("min does not match any segment distance")
	}
}

func TestMinDistanceToPolylineTooShort(t *testing.T) {
	p := Point{Lat: 1, Lng: 1}
	if _, ok := MinDistanceToPolyline(p, nil); ok {
		t.Error("empty polyline: expected ok=false")
	}
	if _, ok := MinDistanceToPolyline(p, []Point{{Lat: 1, Lng: 1}}); ok {
		t.Error("single-point polyline: expected ok=false")
	}
}

func TestMinDistanceRealCoordinates(t *testing.T) {
	// Courier just off a short route segment in São Paulo.
	courier := Point{Lat: -23.561, Lng: -46.656}
	route := []Point{
		{Lat: -23.560, Lng: -46.655},
		{Lat: -23.562, Lng: -46.657},
	}
	d, ok := MinDistanceToPolyline(courier, route)
	if !ok {
		t.Fatal("expected ok")
	}
	if d < 0 || d >= 250 {
		t.Errorf("distance = %f, want small value under 250", d)
	}
}
