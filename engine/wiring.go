package engine

func (e *Engine) wireEventHandlers() {
	// Deviation transitions are the headline signal for the ops dashboard.
	On(e.Events, func(ev DeviationChangedEvent) {
		e.logDeviation(ev)
		e.publish("deviation_changed", map[string]any{
			"order_id":         ev.OrderID,
			"on_route":         ev.Current.OnRoute,
			"deviation_meters": ev.Current.DeviationMeters,
		})
	}, EventDeviationChanged)

	// Courier status transitions go out for the storefront's order views.
	On(e.Events, func(ev OrderActionEvent) {
		e.logFn("engine: %s order %s (queued=%t)", ev.Action, ev.OrderID, ev.Queued)
		e.publish("courier_action", map[string]any{
			"order_id": ev.OrderID,
			"action":   ev.Action,
			"queued":   ev.Queued,
		})
	}, EventOrderAccepted, EventOrderPickedUp, EventOrderDelivered)

	On(e.Events, func(ev ActionQueuedEvent) {
		e.logFn("engine: queued action %s for %s", ev.Action.ID, ev.Action.TargetID)
	}, EventActionQueued)

	On(e.Events, func(ev ActionReplayedEvent) {
		e.logFn("engine: replayed action %s for %s", ev.Action.ID, ev.Action.TargetID)
		e.publish("action_replayed", map[string]any{
			"action_id": ev.Action.ID,
			"order_id":  ev.Action.TargetID,
		})
	}, EventActionReplayed)

	On(e.Events, func(ev ActionFailedEvent) {
		e.logFn("engine: action %s for %s failed (retry %d): %v",
			ev.Action.ID, ev.Action.TargetID, ev.Action.Retries+1, ev.Err)
	}, EventActionFailed)

	On(e.Events, func(ev ConnectivityChangedEvent) {
		if ev.Online {
			e.logFn("engine: back online")
		} else {
			e.logFn("engine: offline, actions will queue")
		}
		e.publish("connectivity", map[string]any{"online": ev.Online})
	}, EventConnectivityChanged)
}

func (e *Engine) logDeviation(ev DeviationChangedEvent) {
	switch {
	case !ev.Current.Computable():
		e.logFn("engine: deviation for %s no longer computable", ev.OrderID)
	case *ev.Current.OnRoute:
		e.logFn("engine: order %s on route (%.0f m)", ev.OrderID, *ev.Current.DeviationMeters)
	default:
		e.logFn("engine: order %s OFF ROUTE (%.0f m)", ev.OrderID, *ev.Current.DeviationMeters)
	}
}

// publish pushes an operational event to the broker, best-effort.
func (e *Engine) publish(eventType string, data any) {
	if e.gateway == nil || e.msgClient == nil || !e.msgClient.IsConnected() {
		return
	}
	e.gateway.PublishEvent(eventType, data)
}
