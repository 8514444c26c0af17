// Package remote talks to the hosted order store (the storefront's
// Postgres database). The tracker never owns this data: it reads order
// records and applies partial-field patches, the same surface the rest of
// the storefront uses.
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"couriertrack/config"
	"couriertrack/geo"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Client struct {
	db *sql.DB
}

func Open(cfg *config.RemoteConfig) (*Client, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)
	return &Client{db: db}, nil
}

func (c *Client) Close() error { return c.db.Close() }

// Ping checks connectivity; the queue's connectivity watcher uses this to
// detect offline/online transitions.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Columns the courier flows are allowed to patch. Patch keys come back out
// of the persistent queue, so they are validated here rather than trusted.
var patchColumns = map[string]bool{
	"courier_id":      true,
	"status":          true,
	"delivery_status": true,
	"picked_up_at":    true,
	"delivered_at":    true,
	"driver_last_lat": true,
	"driver_last_lng": true,
	"distance_km":     true,
	"eta_min":         true,
	"updated_at":      true,
}

// Apply applies a partial-field update to an order record. Repeated
// application of the same patch must be safe for the caller's purposes;
// this client does not deduplicate.
func (c *Client) Apply(ctx context.Context, orderID string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}

	cols := make([]string, 0, len(patch))
	for k := range patch {
		if !patchColumns[k] {
			return fmt.Errorf("apply patch: column %q not allowed", k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)

	set := ""
	args := make([]any, 0, len(cols)+1)
	for i, k := range cols {
		if i > 0 {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", k, i+1)
		args = append(args, patch[k])
	}
	args = append(args, orderID)

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", set, len(args))
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply patch to %s: %w", orderID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("apply patch to %s: order not found", orderID)
	}
	return nil
}

// ReportPosition inserts a breadcrumb row for a delivery.
func (c *Client) ReportPosition(ctx context.Context, orderID string, p geo.Point, at time.Time) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO delivery_locations (order_id, lat, lng, recorded_at) VALUES ($1, $2, $3, $4)`,
		orderID, p.Lat, p.Lng, at)
	if err != nil {
		return fmt.Errorf("report position for %s: %w", orderID, err)
	}
	return nil
}
