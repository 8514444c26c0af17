package engine

import (
	"couriertrack/geo"
	"couriertrack/store"
	"couriertrack/tracking"
)

const (
	EventPositionSampled EventType = iota + 1
	EventDeviationChanged
	EventOrderAccepted
	EventOrderPickedUp
	EventOrderDelivered
	EventActionQueued
	EventActionReplayed
	EventActionFailed
	EventConnectivityChanged
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type PositionSampledEvent struct {
	Point geo.Point
}

type DeviationChangedEvent struct {
	OrderID  string
	Previous tracking.Result
	Current  tracking.Result
}

// OrderActionEvent accompanies accept/pickup/deliver transitions. Queued
// is true when the patch went through the offline queue rather than
// directly to the order store.
type OrderActionEvent struct {
	OrderID string
	Action  string
	Queued  bool
}

type ActionQueuedEvent struct {
	Action *store.QueuedAction
}

type ActionReplayedEvent struct {
	Action *store.QueuedAction
}

type ActionFailedEvent struct {
	Action *store.QueuedAction
	Err    error
}

type ConnectivityChangedEvent struct {
	Online bool
}

type ConnectionEvent struct {
	Detail string
}
