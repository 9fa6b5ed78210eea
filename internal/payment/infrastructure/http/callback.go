package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dukasoft/dukapos/internal/payment/application"
)

// Deduper remembers delivered callbacks; the gateway retries until it
// sees a 2xx, so redeliveries are expected.
type Deduper interface {
	RefKey(scope, ref string) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type CallbackHandler struct {
	log     *slog.Logger
	service *application.Service
	dedupe  Deduper
}

func NewCallbackHandler(log *slog.Logger, service *application.Service, dedupe Deduper) *CallbackHandler {
	return &CallbackHandler{log: log, service: service, dedupe: dedupe}
}

func (h *CallbackHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payments/callback", h.handleCallback)
	return r
}

type callbackReq struct {
	CheckoutID string `json:"checkout_id"`
	ResultCode int    `json:"result_code"`
	ResultDesc string `json:"result_desc"`
	Receipt    string `json:"receipt"`
}

func (h *CallbackHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	var body callbackReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CheckoutID == "" {
		http.Error(w, "invalid callback body", http.StatusBadRequest)
		return
	}

	key := h.dedupe.RefKey("callback", fmt.Sprintf("%s:%d", body.CheckoutID, body.ResultCode))
	seen, err := h.dedupe.Seen(r.Context(), key)
	if err != nil {
		h.log.Error("callback dedupe check failed", "checkout_id", body.CheckoutID, "err", err)
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if seen {
		h.log.Info("duplicate callback skipped", "checkout_id", body.CheckoutID)
		w.WriteHeader(http.StatusOK)
		return
	}

	err = h.service.HandleCallback(r.Context(), application.Callback{
		CheckoutID: body.CheckoutID,
		ResultCode: body.ResultCode,
		ResultDesc: body.ResultDesc,
		Receipt:    body.Receipt,
	})
	if err != nil {
		// The key was recorded before the transition applied; release it
		// so the gateway's redelivery is not skipped as a duplicate.
		if ferr := h.dedupe.Forget(r.Context(), key); ferr != nil {
			h.log.Error("callback dedupe release failed", "checkout_id", body.CheckoutID, "err", ferr)
		}
		http.Error(w, "callback processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
