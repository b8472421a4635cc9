package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zoff-tech/go-shop-saga/pkg/notifications"
)

// NotificationAPI exposes the notification service's synchronous send
// endpoint used by the orchestrated saga.
type NotificationAPI struct {
	notifications *notifications.Service
}

func NewNotificationAPI(notificationSvc *notifications.Service) *NotificationAPI {
	return &NotificationAPI{notifications: notificationSvc}
}

func (a *NotificationAPI) Register(app *fiber.App) {
	app.Get("/health", health)
	app.Post("/notifications/send", a.send)
}

type sendRequest struct {
	OrderID int64  `json:"order_id"`
	Email   string `json:"email"`
}

func (a *NotificationAPI) send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil || req.OrderID == 0 || req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "order_id and email are required")
	}
	result, err := a.notifications.SendDirect(c.Context(), req.OrderID, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
