package www

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// The action handlers answer 200 whether the patch reached the order store
// or was queued; "queued" tells the PWA to show its offline banner.

func (h *Handlers) apiAccept(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, h.engine.Accept)
}

func (h *Handlers) apiPickup(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, h.engine.Pickup)
}

func (h *Handlers) apiDeliver(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, h.engine.Deliver)
}

func (h *Handlers) runAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string) (bool, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.jsonError(w, "missing order id", http.StatusBadRequest)
		return
	}
	queued, err := action(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{
		"status": "ok",
		"queued": queued,
	})
}
