package engine

import (
	"context"
	"fmt"
	"time"
)

// Courier actions mirror the three buttons in the courier app: accept a
// delivery, confirm pickup at the store, confirm handover to the customer.
// Each builds an absolute field patch so replaying it later is safe.
//
// Online the patch goes straight to the order store; on failure, or when
// offline, it is queued and the action still succeeds from the courier's
// point of view.

// Accept claims an available delivery for this courier.
func (e *Engine) Accept(ctx context.Context, orderID string) (queued bool, err error) {
	now := time.Now().UTC().Format(time.RFC3339)
	patch := map[string]any{
		"courier_id":      e.cfg.Messaging.CourierID,
		"delivery_status": "accepted",
		"updated_at":      now,
	}
	return e.applyAction(ctx, orderID, "accept", EventOrderAccepted, patch)
}

// Pickup marks the delivery as collected from the store. The patch carries
// the courier's last known position and the planned route summary so the
// customer's tracking view has distance and ETA from the moment of pickup.
func (e *Engine) Pickup(ctx context.Context, orderID string) (queued bool, err error) {
	now := time.Now().UTC().Format(time.RFC3339)
	patch := map[string]any{
		"delivery_status": "picked_up",
		"picked_up_at":    now,
		"updated_at":      now,
	}
	if fix, ok := e.feed.Latest(); ok {
		patch["driver_last_lat"] = fix.Point.Lat
		patch["driver_last_lng"] = fix.Point.Lng
	}
	if km, eta, ok := e.monitor.RouteSummary(orderID); ok {
		patch["distance_km"] = km
		patch["eta_min"] = eta
	}
	return e.applyAction(ctx, orderID, "pickup", EventOrderPickedUp, patch)
}

// Deliver marks the delivery as handed to the customer and completes the
// order.
func (e *Engine) Deliver(ctx context.Context, orderID string) (queued bool, err error) {
	now := time.Now().UTC().Format(time.RFC3339)
	patch := map[string]any{
		"delivery_status": "delivered",
		"status":          "completed",
		"delivered_at":    now,
		"updated_at":      now,
	}
	return e.applyAction(ctx, orderID, "deliver", EventOrderDelivered, patch)
}

func (e *Engine) applyAction(ctx context.Context, orderID, action string, evt EventType, patch map[string]any) (bool, error) {
	queued := false
	if e.Online() {
		if err := e.remote.Apply(ctx, orderID, patch); err != nil {
			e.logFn("engine: %s %s direct apply failed, queueing: %v", action, orderID, err)
			queued = true
		}
	} else {
		queued = true
	}

	if queued {
		if _, err := e.queue.Enqueue(orderID, patch); err != nil {
			return true, fmt.Errorf("%s %s: %w", action, orderID, err)
		}
	}

	e.Events.Emit(Event{Type: evt, Payload: OrderActionEvent{
		OrderID: orderID,
		Action:  action,
		Queued:  queued,
	}})
	e.monitor.Refresh()
	return queued, nil
}
