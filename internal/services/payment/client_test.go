package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
)

func newTestClient(url string) *Client {
	return NewClient(config.PaymentConfig{
		BaseURL:  url,
		Currency: "thb",
		Methods:  []string{"promptpay"},
		Timeout:  time.Second,
	}, logger.Nop())
}

func TestCreateIntent(t *testing.T) {
	var got IntentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stripe/custom_price", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"data": "https://pay.example/checkout/abc"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	intent, err := c.CreateIntent(context.Background(), IntentRequest{
		Items:     []Item{{Name: "Americano", Description: "normal sweet, small, hot", Price: 4000, Quantity: 2}},
		Employee:  "Nok Srisuk",
		Reference: "ref-1",
		Total:     8000,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/checkout/abc", intent.RedirectURL)
	assert.Equal(t, "ref-1", intent.Reference)
	assert.Equal(t, "thb", got.Currency)
	assert.Equal(t, []string{"promptpay"}, got.Methods)
	assert.Equal(t, int64(4000), got.Items[0].Price)
}

func TestCreateIntentErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "stripe down", http.StatusBadGateway)
		}},
		{name: "missing url", handler: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":""}`))
		}},
		{name: "bad json", handler: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL).CreateIntent(context.Background(), IntentRequest{Reference: "r"})
			require.Error(t, err)
		})
	}
}

func TestCreateIntentOpensCircuit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := c.CreateIntent(context.Background(), IntentRequest{Reference: "r"})
		require.Error(t, err)
	}

	_, err := c.CreateIntent(context.Background(), IntentRequest{Reference: "r"})
	require.ErrorContains(t, err, "unavailable")
	assert.Equal(t, int32(3), calls.Load())
}
