package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twpayne/go-polyline"

	"couriertrack/geo"
)

// Route is a planned path between two points as returned by the routing
// backend.
type Route struct {
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
	Geometry        []geo.Point `json:"geometry"`
}

// DistanceKm returns the route length in kilometers.
func (r *Route) DistanceKm() float64 { return r.DistanceMeters / 1000 }

// ETAMinutes returns the route duration in minutes.
func (r *Route) ETAMinutes() float64 { return r.DurationSeconds / 60 }

// Client talks to an OSRM-compatible routing backend. Failures are
// non-fatal to callers: a route is a convenience, so any error simply
// means "no route available".
type Client struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

func NewClient(baseURL, profile string, timeout time.Duration) *Client {
	if profile == "" {
		profile = "driving"
	}
	return &Client{
		baseURL: baseURL,
		profile: profile,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

// Route requests full route geometry from origin to dest.
func (c *Client) Route(ctx context.Context, origin, dest geo.Point) (*Route, error) {
	if !origin.Valid() || !dest.Valid() {
		return nil, fmt.Errorf("routing: invalid coordinates")
	}

	// OSRM takes lng,lat pairs.
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=polyline",
		c.baseURL, c.profile, origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("routing: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing: GET: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("routing: read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("routing: HTTP %d: %s", resp.StatusCode, string(data))
	}

	var parsed osrmResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("routing: decode: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("routing: no route (code=%s)", parsed.Code)
	}

	best := parsed.Routes[0]
	coords, _, err := polyline.DecodeCoords([]byte(best.Geometry))
	if err != nil {
		return nil, fmt.Errorf("routing: decode polyline: %w", err)
	}
	points := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		p := geo.Point{Lat: c[0], Lng: c[1]}
		if !p.Valid() {
			return nil, fmt.Errorf("routing: polyline contains invalid coordinates")
		}
		points = append(points, p)
	}

	return &Route{
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Geometry:        points,
	}, nil
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string { return c.baseURL }
