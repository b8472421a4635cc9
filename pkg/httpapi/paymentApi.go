package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/zoff-tech/go-shop-saga/pkg/payments"
)

// PaymentAPI exposes the payment service's synchronous processing endpoint
// used by the orchestrated saga.
type PaymentAPI struct {
	payments *payments.Service
}

func NewPaymentAPI(paymentSvc *payments.Service) *PaymentAPI {
	return &PaymentAPI{payments: paymentSvc}
}

func (a *PaymentAPI) Register(app *fiber.App) {
	app.Get("/health", health)
	app.Post("/payments/process", a.process)
	app.Get("/payments", a.list)
}

type processRequest struct {
	OrderID       int64           `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	CustomerEmail string          `json:"customer_email"`
}

func (a *PaymentAPI) process(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil || req.OrderID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order_id and amount are required")
	}
	result, err := a.payments.ProcessDirect(c.Context(), req.OrderID, req.Amount, req.CustomerEmail)
	if err != nil {
		return err
	}
	// Declines are reported in the body; the caller judges success by the
	// boolean, not the status code.
	return c.JSON(result)
}

func (a *PaymentAPI) list(c *fiber.Ctx) error {
	all, err := a.payments.ListPayments(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(all)
}
