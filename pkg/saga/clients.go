package saga

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultCallTimeout = 5 * time.Second

// PaymentResponse is the payment collaborator's synchronous reply. Success
// carries the business outcome; the HTTP status alone does not.
type PaymentResponse struct {
	Success   bool            `json:"success"`
	PaymentID string          `json:"payment_id"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NotificationResponse is the notification collaborator's synchronous reply.
type NotificationResponse struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"order_id"`
	Email   string `json:"email"`
}

// PaymentClient calls the payment service's processing endpoint with a
// bounded timeout.
type PaymentClient struct {
	baseURL string
	client  *http.Client
}

func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &PaymentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Process asks the payment service to charge the order. A transport error
// means the outcome is unknown; Success=false in the body is a decline.
func (c *PaymentClient) Process(ctx context.Context, orderID int64, amount decimal.Decimal, customerEmail string) (PaymentResponse, error) {
	payload := map[string]any{
		"order_id":       orderID,
		"amount":         amount,
		"customer_email": customerEmail,
	}
	var response PaymentResponse
	if err := c.post(ctx, c.baseURL+"/payments/process", payload, &response); err != nil {
		return PaymentResponse{}, err
	}
	return response, nil
}

// NotificationClient calls the notification service's send endpoint.
type NotificationClient struct {
	baseURL string
	client  *http.Client
}

func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &NotificationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *NotificationClient) Send(ctx context.Context, orderID int64, email string) (NotificationResponse, error) {
	payload := map[string]any{
		"order_id": orderID,
		"email":    email,
	}
	var response NotificationResponse
	if err := c.post(ctx, c.baseURL+"/notifications/send", payload, &response); err != nil {
		return NotificationResponse{}, err
	}
	return response, nil
}

func (c *PaymentClient) post(ctx context.Context, url string, payload, out any) error {
	return postJSON(ctx, c.client, url, payload, out)
}

func (c *NotificationClient) post(ctx context.Context, url string, payload, out any) error {
	return postJSON(ctx, c.client, url, payload, out)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("call %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", url, err)
	}
	return nil
}
