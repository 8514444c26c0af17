package messaging

import (
	"encoding/json"
	"log"
	"time"

	"couriertrack/config"
)

// Gateway binds the broker topics to the tracker's internals: inbound GPS
// fixes feed the position feed, inbound sync signals flush the action
// queue, and RequestSync/PublishEvent go out the other way. Everything is
// best-effort; a dead broker degrades to polling, never to an error
// surfaced to the courier.
type Gateway struct {
	client *Client
	cfg    *config.MessagingConfig
}

func NewGateway(client *Client, cfg *config.MessagingConfig) *Gateway {
	return &Gateway{client: client, cfg: cfg}
}

// Bind subscribes the inbound topics. onPosition receives raw fix
// payloads; onSync fires on each sync signal.
func (g *Gateway) Bind(onPosition MessageHandler, onSync func()) error {
	if err := g.client.Subscribe(g.cfg.PositionTopic, onPosition); err != nil {
		return err
	}
	return g.client.Subscribe(g.cfg.SyncTopic, func(payload []byte) {
		// Any payload on the sync topic means "flush now". Signals
		// published by this instance come back too; the flush is
		// idempotent so that is harmless.
		onSync()
	})
}

// RequestSync publishes a wake-up on the sync topic so other tracker
// instances (and this one's subscriber) flush their queues.
func (g *Gateway) RequestSync() {
	payload, _ := json.Marshal(map[string]any{
		"courier_id":   g.cfg.CourierID,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err := g.client.Publish(g.cfg.SyncTopic, payload); err != nil {
		log.Printf("messaging: sync request: %v", err)
	}
}

// PublishEvent pushes an operational event to the events topic for the
// storefront's dashboards.
func (g *Gateway) PublishEvent(eventType string, data any) {
	payload, err := json.Marshal(map[string]any{
		"type":       eventType,
		"courier_id": g.cfg.CourierID,
		"data":       data,
		"at":         time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("messaging: encode event %s: %v", eventType, err)
		return
	}
	if err := g.client.Publish(g.cfg.EventsTopic, payload); err != nil {
		log.Printf("messaging: publish event %s: %v", eventType, err)
	}
}
