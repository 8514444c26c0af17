package www

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"couriertrack/geo"
)

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{
		"status":      "ok",
		"online":      h.engine.Online(),
		"queue_depth": h.engine.Queue().Depth(),
	})
}

// apiDeliveries returns the courier's tracked deliveries with their
// deviation state and route summaries.
func (h *Handlers) apiDeliveries(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Monitor().Snapshot())
}

func (h *Handlers) apiAvailableOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.engine.Remote().ListAvailableOrders(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, orders)
}

func (h *Handlers) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if d, ok := h.engine.Monitor().Delivery(id); ok {
		h.jsonOK(w, d)
		return
	}
	order, err := h.engine.Remote().GetOrder(r.Context(), id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, order)
}

func (h *Handlers) apiDeviation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := h.engine.Monitor().Delivery(id)
	if !ok {
		h.jsonError(w, "not tracked", http.StatusNotFound)
		return
	}
	h.jsonOK(w, d.Deviation)
}

func (h *Handlers) apiTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.engine.DB().ListTrail(chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, trail)
}

func (h *Handlers) apiQueue(w http.ResponseWriter, r *http.Request) {
	pending, err := h.engine.Queue().Pending()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{
		"depth":   h.engine.Queue().Depth(),
		"pending": pending,
	})
}

func (h *Handlers) apiFlushQueue(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Queue().Flush(r.Context())
	h.jsonOK(w, stats)
}

// apiPushPosition accepts a GPS fix over HTTP for devices without broker
// access.
func (h *Handlers) apiPushPosition(w http.ResponseWriter, r *http.Request) {
	var fix struct {
		Lat        float64 `json:"lat"`
		Lng        float64 `json:"lng"`
		RecordedAt string  `json:"recorded_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&fix); err != nil {
		h.jsonError(w, "bad request", http.StatusBadRequest)
		return
	}
	p := geo.Point{Lat: fix.Lat, Lng: fix.Lng}
	if !p.Valid() {
		h.jsonError(w, "invalid coordinates", http.StatusBadRequest)
		return
	}
	at := time.Now()
	if fix.RecordedAt != "" {
		if t, err := time.Parse(time.RFC3339, fix.RecordedAt); err == nil {
			at = t
		}
	}
	h.engine.Feed().Update(p, at)
	h.jsonOK(w, map[string]string{"status": "ok"})
}
