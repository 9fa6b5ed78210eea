package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dukasoft/dukapos/internal/auth"
	"github.com/dukasoft/dukapos/internal/inventory/application"
	invdomain "github.com/dukasoft/dukapos/internal/inventory/domain"
	saledomain "github.com/dukasoft/dukapos/internal/sale/domain"
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
	r.Use(auth.Middleware)
	r.Get("/items", h.listItems)
	r.Get("/items/{id}", h.getItem)
	r.Get("/items/{id}/movements", h.listMovements)
	r.Get("/sales/{id}/movements", h.listSaleMovements)
	r.Post("/items/{id}/adjustments", h.adjust)
	return r
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.ListItems(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	moves, err := h.service.ListMovementsByItem(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moves)
}

func (h *Handler) listSaleMovements(w http.ResponseWriter, r *http.Request) {
	moves, err := h.service.ListMovementsBySale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moves)
}

type adjustReq struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing operator identity", http.StatusUnauthorized)
		return
	}

	var body adjustReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), body.Delta, body.Note, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stock *saledomain.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		http.Error(w, stock.Error(), http.StatusConflict)
	case errors.Is(err, invdomain.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, saledomain.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, saledomain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("inventory request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
