package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gbcanteen/operator-console/internal/alert"
	"github.com/gbcanteen/operator-console/internal/console"
	"github.com/gbcanteen/operator-console/internal/orders"
)

// ConsoleHandler exposes the operator session over local HTTP: derived views
// of the live working set plus the operator actions.
type ConsoleHandler struct {
	Store      *orders.Store
	Controller *console.Controller
	Alerts     *alert.Coordinator
}

func (h *ConsoleHandler) Register(r *chi.Mux) {
	r.Get("/api/state", h.state)
	r.Get("/api/orders/live", h.liveOrders)
	r.Get("/api/orders/counts", h.counts)
	r.Get("/api/orders/history", h.history)
	r.Get("/api/orders/summary", h.summary)
	r.Get("/api/orders/{id}/transitions", h.transitions)
	r.Patch("/api/orders/{id}/status", h.updateStatus)
	r.Post("/api/alert/accept", h.acceptAlert)
	r.Post("/api/alert/reject", h.rejectAlert)
	r.Post("/api/session", h.login)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *ConsoleHandler) state(w http.ResponseWriter, r *http.Request) {
	identity := h.Controller.Identity()
	writeJSON(w, http.StatusOK, map[string]any{
		"connection":     h.Controller.ConnectionState(),
		"restaurantId":   identity.RestaurantID,
		"restaurantName": identity.RestaurantName,
		"alerting":       h.Alerts.Active(),
		"liveOrders":     h.Store.Len(),
	})
}

func (h *ConsoleHandler) liveOrders(w http.ResponseWriter, r *http.Request) {
	list := h.Store.Snapshot()
	if status := r.URL.Query().Get("status"); status != "" {
		list = orders.FilterByStatus(list, orders.Status(status))
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ConsoleHandler) counts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orders.CountByStatus(h.Store.Snapshot()))
}

func (h *ConsoleHandler) transitions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, ok := h.Store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, orders.AllowedNext(o.Status))
}

func (h *ConsoleHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing status"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Controller.UpdateOrderStatus(ctx, id, orders.Status(req.Status))
	switch {
	case errors.Is(err, console.ErrUnknownOrder):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not in live set"})
	case errors.Is(err, console.ErrNotInitialized):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session not initialized"})
	case err != nil:
		// Optimistic value kept locally; the remote patch failed.
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "result": res})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *ConsoleHandler) acceptAlert(w http.ResponseWriter, r *http.Request) {
	h.resolveAlert(w, r, h.Alerts.Accept)
}

func (h *ConsoleHandler) rejectAlert(w http.ResponseWriter, r *http.Request) {
	h.resolveAlert(w, r, h.Alerts.Reject)
}

func (h *ConsoleHandler) resolveAlert(w http.ResponseWriter, r *http.Request, action func(context.Context) (orders.Order, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := action(ctx)
	switch {
	case errors.Is(err, alert.ErrNotAlerting):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active alert"})
	case errors.Is(err, alert.ErrNoPending):
		writeJSON(w, http.StatusOK, map[string]string{"notice": "no pending orders"})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "order": o})
	default:
		writeJSON(w, http.StatusOK, o)
	}
}

func (h *ConsoleHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing credentials"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.Controller.Login(ctx, req.Name, req.Password); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restaurantName": h.Controller.Identity().RestaurantName,
	})
}

func (h *ConsoleHandler) history(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	all, err := h.Controller.FetchAll(ctx)
	if err != nil {
		h.fetchError(w, err)
		return
	}

	var timeframe time.Duration
	switch r.URL.Query().Get("timeframe") {
	case "24h":
		timeframe = 24 * time.Hour
	case "7d":
		timeframe = 7 * 24 * time.Hour
	case "30d":
		timeframe = 30 * 24 * time.Hour
	}
	out := orders.History(all, time.Now(), h.Controller.LiveWindow(), timeframe)
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ConsoleHandler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	all, err := h.Controller.FetchAll(ctx)
	if err != nil {
		h.fetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.SummarizeByDay(all))
}

func (h *ConsoleHandler) fetchError(w http.ResponseWriter, err error) {
	if errors.Is(err, console.ErrNotInitialized) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session not initialized"})
		return
	}
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
}
