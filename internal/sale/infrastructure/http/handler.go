package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukasoft/dukapos/internal/auth"
	"github.com/dukasoft/dukapos/internal/sale/application"
	"github.com/dukasoft/dukapos/internal/sale/domain"
)

type SaleService interface {
	CreateSale(ctx context.Context, req application.CreateSaleRequest, actor auth.Actor) (*application.Receipt, error)
	GetSale(ctx context.Context, id string) (domain.Sale, error)
	ListSalesByOperator(ctx context.Context, operatorID string, limit int) ([]domain.Sale, error)
}

type Handler struct {
	log     *slog.Logger
	service SaleService
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service SaleService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("sale-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware)
	r.Post("/sales", h.createSale)
	r.Get("/sales", h.listSales)
	r.Get("/sales/{id}", h.getSale)
	return r
}

// Quantities and prices are decoded as json.Number and converted with a
// strict integer parse, so fractional, non-finite or non-numeric values
// are rejected here rather than guarded for inside the engine.
type createSaleLineReq struct {
	ItemID         string      `json:"item_id"`
	Quantity       json.Number `json:"quantity"`
	UnitPriceCents json.Number `json:"unit_price_cents"`
}

type createSaleReq struct {
	Lines      []createSaleLineReq `json:"lines"`
	TotalCents json.Number         `json:"total_cents"`
	Method     string              `json:"method"`
	Reference  string              `json:"reference"`
	PayerPhone string              `json:"payer_phone"`
}

type createSaleResp struct {
	SaleID     string `json:"sale_id"`
	Message    string `json:"message"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

type errorResp struct {
	Error     string `json:"error"`
	ItemID    string `json:"item_id,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateSale")
	defer span.End()

	actor, ok := auth.FromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp{Error: "missing operator identity"})
		return
	}

	var body createSaleReq
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid request body"})
		return
	}

	req, err := body.toRequest()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}

	receipt, err := h.service.CreateSale(ctx, req, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSaleResp{
		SaleID:     receipt.SaleID,
		Message:    receipt.Message,
		PaymentRef: receipt.PaymentRef,
	})
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleResp(sale))
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp{Error: "missing operator identity"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	sales, err := h.service.ListSalesByOperator(r.Context(), actor.ID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]saleResp, 0, len(sales))
	for _, s := range sales {
		out = append(out, toSaleResp(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stock *domain.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		writeJSON(w, http.StatusConflict, errorResp{
			Error:     stock.Error(),
			ItemID:    stock.ItemID,
			Available: &stock.Available,
			Requested: &stock.Requested,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResp{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
	case errors.Is(err, domain.ErrSaleNotFound):
		writeJSON(w, http.StatusNotFound, errorResp{Error: err.Error()})
	case errors.Is(err, domain.ErrPaymentInitiation):
		writeJSON(w, http.StatusBadGateway, errorResp{Error: err.Error()})
	default:
		h.log.Error("sale request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "internal error"})
	}
}

func (b createSaleReq) toRequest() (application.CreateSaleRequest, error) {
	req := application.CreateSaleRequest{
		Method:     b.Method,
		Reference:  b.Reference,
		PayerPhone: b.PayerPhone,
	}

	total, err := parseInt64(b.TotalCents)
	if err != nil {
		return req, fmt.Errorf("total_cents: %v", err)
	}
	req.TotalCents = total

	for i, l := range b.Lines {
		qty, err := parseInt64(l.Quantity)
		if err != nil {
			return req, fmt.Errorf("line %d quantity: %v", i+1, err)
		}
		price, err := parseInt64(l.UnitPriceCents)
		if err != nil {
			return req, fmt.Errorf("line %d unit_price_cents: %v", i+1, err)
		}
		req.Lines = append(req.Lines, application.CreateSaleLine{
			ItemID:         l.ItemID,
			Quantity:       int(qty),
			UnitPriceCents: price,
		})
	}
	return req, nil
}

func parseInt64(n json.Number) (int64, error) {
	if n == "" {
		return 0, fmt.Errorf("missing")
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", n.String())
	}
	return v, nil
}

type saleLineResp struct {
	ItemID         string `json:"item_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type saleResp struct {
	ID         string         `json:"id"`
	TotalCents int64          `json:"total_cents"`
	Method     string         `json:"method"`
	PaymentRef string         `json:"payment_ref,omitempty"`
	Status     string         `json:"status"`
	OperatorID string         `json:"operator_id"`
	CreatedAt  string         `json:"created_at"`
	Lines      []saleLineResp `json:"lines,omitempty"`
}

func toSaleResp(s domain.Sale) saleResp {
	out := saleResp{
		ID:         s.ID,
		TotalCents: s.TotalCents,
		Method:     string(s.Method),
		PaymentRef: s.PaymentRef,
		Status:     string(s.Status),
		OperatorID: s.OperatorID,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, saleLineResp{
			ItemID:         l.ItemID,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
