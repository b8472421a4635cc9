package saga

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentClient_JudgesSuccessByBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/process", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(42), req["order_id"])

		// 200 with a body-level decline must not be treated as success.
		json.NewEncoder(w).Encode(PaymentResponse{Success: false, OrderID: 42})
	}))
	defer srv.Close()

	client := NewPaymentClient(srv.URL, time.Second)
	resp, err := client.Process(context.Background(), 42, decimal.NewFromInt(2500), "a@example.com")
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestPaymentClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PaymentResponse{
			Success:   true,
			PaymentID: "pay_42_1",
			OrderID:   42,
			Amount:    decimal.NewFromInt(2500),
		})
	}))
	defer srv.Close()

	client := NewPaymentClient(srv.URL, time.Second)
	resp, err := client.Process(context.Background(), 42, decimal.NewFromInt(2500), "a@example.com")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "pay_42_1", resp.PaymentID)
	assert.True(t, resp.Amount.Equal(decimal.NewFromInt(2500)))
}

func TestPaymentClient_ServerErrorIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewPaymentClient(srv.URL, time.Second)
	_, err := client.Process(context.Background(), 42, decimal.NewFromInt(100), "a@example.com")
	require.Error(t, err)
}

func TestPaymentClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewPaymentClient(srv.URL, 20*time.Millisecond)
	_, err := client.Process(context.Background(), 42, decimal.NewFromInt(100), "a@example.com")
	require.Error(t, err)
}

func TestNotificationClient_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications/send", r.URL.Path)
		json.NewEncoder(w).Encode(NotificationResponse{Success: true, OrderID: 7, Email: "a@example.com"})
	}))
	defer srv.Close()

	client := NewNotificationClient(srv.URL, time.Second)
	resp, err := client.Send(context.Background(), 7, "a@example.com")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.OrderID)
}
