package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"couriertrack/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

func (h *EventHub) BroadcastJSON(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("sse: encode %s: %v", event, err)
		return
	}
	h.Broadcast(event, string(data))
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	engine.On(eng.Events, func(ev engine.DeviationChangedEvent) {
		h.BroadcastJSON("deviation", map[string]any{
			"order_id":         ev.OrderID,
			"on_route":         ev.Current.OnRoute,
			"deviation_meters": ev.Current.DeviationMeters,
		})
	}, engine.EventDeviationChanged)

	engine.On(eng.Events, func(ev engine.OrderActionEvent) {
		h.BroadcastJSON("order-update", map[string]any{
			"order_id": ev.OrderID,
			"action":   ev.Action,
			"queued":   ev.Queued,
		})
	}, engine.EventOrderAccepted, engine.EventOrderPickedUp, engine.EventOrderDelivered)

	engine.On(eng.Events, func(ev engine.PositionSampledEvent) {
		h.BroadcastJSON("position", map[string]any{
			"lat": ev.Point.Lat,
			"lng": ev.Point.Lng,
		})
	}, engine.EventPositionSampled)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.BroadcastJSON("queue-update", map[string]any{"depth": eng.Queue().Depth()})
	}, engine.EventActionQueued, engine.EventActionReplayed)

	engine.On(eng.Events, func(ev engine.ConnectivityChangedEvent) {
		h.BroadcastJSON("connectivity", map[string]any{"online": ev.Online})
	}, engine.EventConnectivityChanged)

	engine.On(eng.Events, func(engine.ConnectionEvent) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	}, engine.EventMessagingConnected)

	engine.On(eng.Events, func(engine.ConnectionEvent) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	}, engine.EventMessagingDisconnected)
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
