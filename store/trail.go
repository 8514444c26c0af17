package store

import (
	"database/sql"
	"fmt"
	"time"

	"couriertrack/geo"
)

// TrailPoint is one breadcrumb in a delivery's local GPS trail. The trail
// is a device-side copy of what gets reported to the remote store, kept so
// the map view works while offline.
type TrailPoint struct {
	ID         int64     `json:"id"`
	OrderID    string    `json:"order_id"`
	Point      geo.Point `json:"point"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (db *DB) AddTrailPoint(orderID string, p geo.Point, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := db.Exec(`INSERT INTO trail_points (order_id, lat, lng, recorded_at) VALUES (?, ?, ?, ?)`,
		orderID, p.Lat, p.Lng, at.UTC().Format(actionTimeLayout))
	if err != nil {
		return fmt.Errorf("add trail point: %w", err)
	}
	return nil
}

// ListTrail returns a delivery's breadcrumbs oldest first.
func (db *DB) ListTrail(orderID string) ([]*TrailPoint, error) {
	rows, err := db.Query(`SELECT id, order_id, lat, lng, recorded_at FROM trail_points WHERE order_id = ? ORDER BY recorded_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrail(rows)
}

// LastTrailPoint returns the most recent breadcrumb for a delivery, or nil
// when none is recorded.
func (db *DB) LastTrailPoint(orderID string) (*TrailPoint, error) {
	rows, err := db.Query(`SELECT id, order_id, lat, lng, recorded_at FROM trail_points WHERE order_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pts, err := scanTrail(rows)
	if err != nil || len(pts) == 0 {
		return nil, err
	}
	return pts[0], nil
}

// DeleteTrail drops the local breadcrumbs for a completed delivery.
func (db *DB) DeleteTrail(orderID string) error {
	_, err := db.Exec(`DELETE FROM trail_points WHERE order_id = ?`, orderID)
	return err
}

func scanTrail(rows *sql.Rows) ([]*TrailPoint, error) {
	var pts []*TrailPoint
	for rows.Next() {
		var tp TrailPoint
		var recordedAt string
		if err := rows.Scan(&tp.ID, &tp.OrderID, &tp.Point.Lat, &tp.Point.Lng, &recordedAt); err != nil {
			return nil, err
		}
		tp.RecordedAt = scanTime(recordedAt)
		pts = append(pts, &tp)
	}
	return pts, rows.Err()
}
