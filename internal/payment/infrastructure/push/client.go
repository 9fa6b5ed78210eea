package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dukasoft/dukapos/internal/payment/domain"
)

// Client initiates STK-style push charges against the mobile-money
// gateway. The gateway answers synchronously with a correlation pair;
// the actual confirmation arrives later on the callback endpoint.
type Client struct {
	log       *slog.Logger
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[domain.Initiation]
	baseURL   string
	shortcode string
	passkey   string
}

type Config struct {
	BaseURL   string
	Shortcode string
	Passkey   string
	Timeout   time.Duration
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:       log,
		http:      &http.Client{Timeout: timeout},
		breaker:   gobreaker.NewCircuitBreaker[domain.Initiation](gobreaker.Settings{Name: "push-gateway"}),
		baseURL:   cfg.BaseURL,
		shortcode: cfg.Shortcode,
		passkey:   cfg.Passkey,
	}
}

type chargeRequest struct {
	Shortcode   string `json:"shortcode"`
	Passkey     string `json:"passkey"`
	Phone       string `json:"phone"`
	AmountCents int64  `json:"amount_cents"`
	AccountRef  string `json:"account_reference"`
}

type chargeResponse struct {
	RequestID    string `json:"request_id"`
	CheckoutID   string `json:"checkout_id"`
	ResponseCode int    `json:"response_code"`
	Description  string `json:"response_description"`
}

func (c *Client) Initiate(ctx context.Context, phone string, amountCents int64, accountRef string) (domain.Initiation, error) {
	return c.breaker.Execute(func() (domain.Initiation, error) {
		return c.charge(ctx, phone, amountCents, accountRef)
	})
}

func (c *Client) charge(ctx context.Context, phone string, amountCents int64, accountRef string) (domain.Initiation, error) {
	body, err := json.Marshal(chargeRequest{
		Shortcode:   c.shortcode,
		Passkey:     c.passkey,
		Phone:       phone,
		AmountCents: amountCents,
		AccountRef:  accountRef,
	})
	if err != nil {
		return domain.Initiation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return domain.Initiation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Initiation{}, fmt.Errorf("push gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return domain.Initiation{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Initiation{}, fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}

	var out chargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Initiation{}, fmt.Errorf("push gateway response malformed: %w", err)
	}
	if out.ResponseCode != 0 {
		return domain.Initiation{}, fmt.Errorf("push gateway rejected charge: %s", out.Description)
	}

	c.log.Info("push charge accepted",
		"checkout_id", out.CheckoutID, "account_ref", accountRef, "amount_cents", amountCents)
	return domain.Initiation{RequestID: out.RequestID, CheckoutID: out.CheckoutID}, nil
}
