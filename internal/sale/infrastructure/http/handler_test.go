package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukasoft/dukapos/internal/auth"
	"github.com/dukasoft/dukapos/internal/sale/application"
	"github.com/dukasoft/dukapos/internal/sale/domain"
	"github.com/dukasoft/dukapos/pkg/logging"
)

type mockService struct {
	receipt    *application.Receipt
	createErr  error
	gotRequest application.CreateSaleRequest
	gotActor   auth.Actor
	sale       domain.Sale
	getErr     error
}

func (m *mockService) CreateSale(_ context.Context, req application.CreateSaleRequest, actor auth.Actor) (*application.Receipt, error) {
	m.gotRequest = req
	m.gotActor = actor
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.receipt, nil
}

func (m *mockService) GetSale(_ context.Context, _ string) (domain.Sale, error) {
	return m.sale, m.getErr
}

func (m *mockService) ListSalesByOperator(_ context.Context, _ string, _ int) ([]domain.Sale, error) {
	return []domain.Sale{m.sale}, nil
}

func newRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-Operator-Id", "op-1")
	req.Header.Set("X-Operator-Role", "cashier")
	return req
}

func serve(svc SaleService, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewHandler(logging.New("error"), svc).Routes().ServeHTTP(rec, req)
	return rec
}

func TestCreateSaleHandler(t *testing.T) {
	svc := &mockService{receipt: &application.Receipt{SaleID: "s-1", Message: "sale recorded and paid"}}

	body := `{
		"lines": [{"item_id": "item-x", "quantity": 3, "unit_price_cents": 500}],
		"total_cents": 1500,
		"method": "card",
		"reference": "REF1"
	}`
	rec := serve(svc, newRequest(t, http.MethodPost, "/sales", body))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp["sale_id"])

	assert.Equal(t, "op-1", svc.gotActor.ID)
	require.Len(t, svc.gotRequest.Lines, 1)
	assert.Equal(t, 3, svc.gotRequest.Lines[0].Quantity)
	assert.Equal(t, int64(1500), svc.gotRequest.TotalCents)
}

func TestCreateSaleHandlerRejectsNonIntegerQuantity(t *testing.T) {
	svc := &mockService{}

	for _, qty := range []string{`1.5`, `"three"`, `null`, `1e3`} {
		body := `{
			"lines": [{"item_id": "item-x", "quantity": ` + qty + `, "unit_price_cents": 500}],
			"total_cents": 500,
			"method": "card",
			"reference": "REF1"
		}`
		rec := serve(svc, newRequest(t, http.MethodPost, "/sales", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "quantity %s", qty)
	}
}

func TestCreateSaleHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unauthorized", domain.ErrUnauthorized, http.StatusForbidden},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"payment initiation", domain.ErrPaymentInitiation, http.StatusBadGateway},
		{"persistence", domain.ErrPersistence, http.StatusInternalServerError},
	}

	body := `{"lines":[{"item_id":"x","quantity":1,"unit_price_cents":100}],"total_cents":100,"method":"card","reference":"R"}`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{createErr: tc.err}
			rec := serve(svc, newRequest(t, http.MethodPost, "/sales", body))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestCreateSaleHandlerInsufficientStock(t *testing.T) {
	svc := &mockService{createErr: &domain.InsufficientStockError{
		ItemID: "item-x", ItemName: "Sugar 1kg", Available: 2, Requested: 3,
	}}

	body := `{"lines":[{"item_id":"item-x","quantity":3,"unit_price_cents":500}],"total_cents":1500,"method":"card","reference":"R"}`
	rec := serve(svc, newRequest(t, http.MethodPost, "/sales", body))

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		ItemID    string `json:"item_id"`
		Available int    `json:"available"`
		Requested int    `json:"requested"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "item-x", resp.ItemID)
	assert.Equal(t, 2, resp.Available)
	assert.Equal(t, 3, resp.Requested)
}

func TestCreateSaleHandlerWithoutIdentity(t *testing.T) {
	svc := &mockService{}
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{}`))
	rec := serve(svc, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSaleHandler(t *testing.T) {
	svc := &mockService{sale: domain.Sale{
		ID:         "s-1",
		TotalCents: 1500,
		Method:     domain.MethodCard,
		Status:     domain.StatusPaid,
		OperatorID: "op-1",
		CreatedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Lines:      []domain.Line{{SaleID: "s-1", ItemID: "item-x", Quantity: 3, UnitPriceCents: 500}},
	}}

	rec := serve(svc, newRequest(t, http.MethodGet, "/sales/s-1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp saleResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "paid", resp.Status)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 3, resp.Lines[0].Quantity)
}

func TestGetSaleHandlerNotFound(t *testing.T) {
	svc := &mockService{getErr: domain.ErrSaleNotFound}
	rec := serve(svc, newRequest(t, http.MethodGet, "/sales/unknown", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
