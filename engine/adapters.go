package engine

import (
	"couriertrack/geo"
	"couriertrack/store"
	"couriertrack/tracking"
)

// monitorEmitter bridges the tracking monitor's emitter interface to the
// EventBus.
type monitorEmitter struct {
	bus *EventBus
}

func (e *monitorEmitter) EmitPositionSampled(p geo.Point) {
	e.bus.Emit(Event{Type: EventPositionSampled, Payload: PositionSampledEvent{Point: p}})
}

func (e *monitorEmitter) EmitDeviationChanged(orderID string, prev, cur tracking.Result) {
	e.bus.Emit(Event{Type: EventDeviationChanged, Payload: DeviationChangedEvent{
		OrderID:  orderID,
		Previous: prev,
		Current:  cur,
	}})
}

// queueEmitter bridges the action queue's emitter interface to the EventBus.
type queueEmitter struct {
	bus *EventBus
}

func (e *queueEmitter) EmitActionQueued(a *store.QueuedAction) {
	e.bus.Emit(Event{Type: EventActionQueued, Payload: ActionQueuedEvent{Action: a}})
}

func (e *queueEmitter) EmitActionReplayed(a *store.QueuedAction) {
	e.bus.Emit(Event{Type: EventActionReplayed, Payload: ActionReplayedEvent{Action: a}})
}

func (e *queueEmitter) EmitActionFailed(a *store.QueuedAction, err error) {
	e.bus.Emit(Event{Type: EventActionFailed, Payload: ActionFailedEvent{Action: a, Err: err}})
}
