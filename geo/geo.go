// Package geo provides planar-approximation geometry for short urban
// distances. Latitude/longitude pairs are projected onto a local tangent
// plane (equirectangular), which is accurate enough for intra-city
// delivery routes but degrades over long distances and near the poles.
package geo

import "math"

// metersPerDegree is the approximate length of one degree of latitude.
const metersPerDegree = 111320

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is a real coordinate.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// LocalXY projects a point into local planar meters.
func LocalXY(p Point) (x, y float64) {
	x = p.Lng * metersPerDegree * math.Cos(p.Lat*math.Pi/180)
	y = p.Lat * metersPerDegree
	return x, y
}

// DistanceToSegment returns the distance in meters from p to the segment
// a-b, computed in the local planar projection. The projection parameter is
// clamped to [0,1], so the closest point is constrained to the segment. A
// zero-length segment degenerates to the point-to-point distance.
func DistanceToSegment(p, a, b Point) float64 {
	px, py := LocalXY(p)
	ax, ay := LocalXY(a)
	bx, by := LocalXY(b)

	dx := bx - ax
	dy := by - ay

	t := 0.0
	if lenSq := dx*dx + dy*dy; lenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	cx := ax + t*dx
	cy := ay + t*dy
	return math.Hypot(px-cx, py-cy)
}

// MinDistanceToPolyline returns the minimum distance in meters from p to
// any segment of the polyline. ok is false when the polyline has fewer
// than 2 points and no distance is defined. The scan is O(n), which is
// fine for route geometries of modest length.
func MinDistanceToPolyline(p Point, line []Point) (meters float64, ok bool) {
	if len(line) < 2 {
		return 0, false
	}
	min := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		if d := DistanceToSegment(p, line[i], line[i+1]); d < min {
			min = d
		}
	}
	return min, true
}
