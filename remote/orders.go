package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"couriertrack/geo"
)

// Order is the slice of the storefront's order record the courier flows
// care about.
type Order struct {
	ID              string     `json:"id"`
	OrderNumber     int64      `json:"order_number"`
	CustomerName    string     `json:"customer_name"`
	CustomerAddress string     `json:"customer_address"`
	CustomerPhone   string     `json:"customer_phone"`
	Status          string     `json:"status"`
	DeliveryStatus  string     `json:"delivery_status"`
	CourierID       *string    `json:"courier_id,omitempty"`
	Customer        *geo.Point `json:"customer,omitempty"`
	DeliveryFee     float64    `json:"delivery_fee"`
	DistanceKm      *float64   `json:"distance_km,omitempty"`
	EtaMin          *float64   `json:"eta_min,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

const orderCols = `id, order_number, customer_name, customer_address, customer_phone, status, delivery_status, courier_id, customer_lat, customer_lng, delivery_fee, distance_km, eta_min, created_at`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	var courierID sql.NullString
	var lat, lng, distKm, etaMin sql.NullFloat64
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerAddress, &o.CustomerPhone,
		&o.Status, &o.DeliveryStatus, &courierID, &lat, &lng, &o.DeliveryFee, &distKm, &etaMin, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if courierID.Valid {
		o.CourierID = &courierID.String
	}
	if lat.Valid && lng.Valid {
		o.Customer = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if distKm.Valid {
		o.DistanceKm = &distKm.Float64
	}
	if etaMin.Valid {
		o.EtaMin = &etaMin.Float64
	}
	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

// ListAssignedOrders returns the courier's active deliveries.
func (c *Client) ListAssignedOrders(ctx context.Context, courierID string) ([]*Order, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE courier_id = $1 AND status IN ('preparing', 'out_for_delivery') ORDER BY created_at DESC`,
		courierID)
	if err != nil {
		return nil, fmt.Errorf("list assigned orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListAvailableOrders returns unassigned deliveries ready for pickup.
func (c *Client) ListAvailableOrders(ctx context.Context) ([]*Order, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE courier_id IS NULL AND status = 'out_for_delivery' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list available orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}
