package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
)

// Item is one cart line as the payment API expects it. Price is in minor
// currency units.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

// IntentRequest is the body of the create-intent call.
type IntentRequest struct {
	Items     []Item   `json:"item"`
	Currency  string   `json:"currency"`
	Methods   []string `json:"method"`
	Employee  string   `json:"employee"`
	Reference string   `json:"reference"`
	Total     int64    `json:"total"`
}

type intentResponse struct {
	Data string `json:"data"`
}

// Intent is a created payment intent the customer completes out of band.
type Intent struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
}

// Client creates payment intents over HTTP behind a circuit breaker.
type Client struct {
	baseURL  string
	currency string
	methods  []string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*Intent]
	logger   *logger.Logger
}

func NewClient(cfg config.PaymentConfig, log *logger.Logger) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		currency: cfg.Currency,
		methods:  cfg.Methods,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Intent](gobreaker.Settings{
		Name:        "payment-intent",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit_state_changed", fmt.Sprintf("Circuit %s moved from %s to %s", name, from, to), "", nil)
		},
	})
	return c
}

// Currency and Methods fill in the request defaults.
func (c *Client) Currency() string  { return c.currency }
func (c *Client) Methods() []string { return c.methods }

// CreateIntent asks the payment API for a redirect URL.
func (c *Client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.Currency == "" {
		req.Currency = c.currency
	}
	if len(req.Methods) == 0 {
		req.Methods = c.methods
	}

	intent, err := c.breaker.Execute(func() (*Intent, error) {
		return c.createIntent(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("payment service unavailable: %w", err)
	}
	return intent, err
}

func (c *Client) createIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stripe/custom_price", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if id := logger.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("intent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("intent request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode intent response: %w", err)
	}
	if out.Data == "" {
		return nil, errors.New("intent response has no redirect url")
	}

	c.logger.Debug("payment_intent_created", "Payment intent created", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"reference": req.Reference,
		"total":     req.Total,
	})

	return &Intent{Reference: req.Reference, RedirectURL: out.Data}, nil
}
