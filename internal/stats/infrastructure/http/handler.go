package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvcruz/comanda/internal/stats/application"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/orders/{window}", h.orderStats)
	r.Get("/stock", h.stockSnapshot)
	return r
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	window, err := application.ParseWindow(chi.URLParam(r, "window"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	staffID := r.URL.Query().Get("staff_id")
	if staffID != "" {
		if _, err := uuid.Parse(staffID); err != nil {
			http.Error(w, "invalid staff_id", http.StatusBadRequest)
			return
		}
	}
	report, err := h.service.OrderStats(r.Context(), window, staffID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) stockSnapshot(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.StockSnapshot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"levels": levels})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrUnknownWindow) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.Error("statistics request failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
