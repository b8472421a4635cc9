package httpapi

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/zoff-tech/go-shop-saga/pkg/auth"
	"github.com/zoff-tech/go-shop-saga/pkg/catalog"
	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/orders"
	"github.com/zoff-tech/go-shop-saga/pkg/saga"
	"github.com/zoff-tech/go-shop-saga/pkg/session"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
)

// OrderAPI exposes the order service over HTTP: login, catalog, the
// choreographed order entry and the orchestrated saga entry.
type OrderAPI struct {
	orders       *orders.Service
	orchestrator *saga.Orchestrator
	catalog      *catalog.Client
	sessions     session.Store
	issuer       *auth.Issuer
	sessionTTL   config.SessionSettings
}

func NewOrderAPI(orderSvc *orders.Service, orchestrator *saga.Orchestrator, catalogClient *catalog.Client, sessions session.Store, issuer *auth.Issuer, sessionSettings config.SessionSettings) *OrderAPI {
	return &OrderAPI{
		orders:       orderSvc,
		orchestrator: orchestrator,
		catalog:      catalogClient,
		sessions:     sessions,
		issuer:       issuer,
		sessionTTL:   sessionSettings,
	}
}

// Register mounts the routes on the app.
func (a *OrderAPI) Register(app *fiber.App) {
	app.Get("/health", health)
	app.Post("/login", a.login)
	app.Post("/logout", a.requireAuth, a.logout)
	app.Get("/products", a.products)
	app.Post("/orders", a.requireAuth, a.createOrder)
	app.Post("/orders/orchestrated", a.requireAuth, a.placeOrderOrchestrated)
	app.Get("/orders", a.requireAuth, a.listOrders)
	app.Get("/orders/:id", a.requireAuth, a.getOrder)
}

func health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type loginRequest struct {
	Email string `json:"email"`
}

func (a *OrderAPI) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}
	token, err := a.issuer.IssueToken(req.Email)
	if err != nil {
		return err
	}
	if err := a.sessions.Put(c.Context(), token, req.Email, a.sessionTTL.TTL); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": token, "email": req.Email})
}

func (a *OrderAPI) logout(c *fiber.Ctx) error {
	token := c.Locals("token").(string)
	if err := a.sessions.Delete(c.Context(), token); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// requireAuth verifies the bearer token and checks the session is still
// active, then stashes the subject for the handlers.
func (a *OrderAPI) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}
	subject, err := a.issuer.VerifyToken(token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	if _, err := a.sessions.Get(c.Context(), token); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "session expired")
		}
		return err
	}
	c.Locals("token", token)
	c.Locals("email", subject)
	return c.Next()
}

func (a *OrderAPI) products(c *fiber.Ctx) error {
	products, err := a.catalog.Products(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (a *OrderAPI) orderRequest(c *fiber.Ctx) (orders.CreateOrderRequest, error) {
	var req orders.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "malformed order body")
	}
	if req.CustomerEmail == "" {
		req.CustomerEmail = c.Locals("email").(string)
	}
	return req, nil
}

func (a *OrderAPI) createOrder(c *fiber.Ctx) error {
	req, err := a.orderRequest(c)
	if err != nil {
		return err
	}
	order, err := a.orders.CreateOrder(c.Context(), req)
	if err != nil {
		if errors.Is(err, orders.ErrInvalidOrder) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (a *OrderAPI) placeOrderOrchestrated(c *fiber.Ctx) error {
	req, err := a.orderRequest(c)
	if err != nil {
		return err
	}
	order, err := a.orchestrator.PlaceOrder(c.Context(), req)
	if err != nil {
		if errors.Is(err, saga.ErrPaymentDeclined) {
			return fiber.NewError(fiber.StatusPaymentRequired, "payment declined")
		}
		if errors.Is(err, orders.ErrInvalidOrder) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (a *OrderAPI) listOrders(c *fiber.Ctx) error {
	all, err := a.orders.ListOrders(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(all)
}

func (a *OrderAPI) getOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	order, err := a.orders.GetOrder(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	return c.JSON(order)
}
