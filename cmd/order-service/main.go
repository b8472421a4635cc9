package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/lib/pq"

	"github.com/zoff-tech/go-shop-saga/pkg/auth"
	"github.com/zoff-tech/go-shop-saga/pkg/broker"
	"github.com/zoff-tech/go-shop-saga/pkg/catalog"
	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/httpapi"
	"github.com/zoff-tech/go-shop-saga/pkg/orders"
	"github.com/zoff-tech/go-shop-saga/pkg/relay"
	"github.com/zoff-tech/go-shop-saga/pkg/saga"
	"github.com/zoff-tech/go-shop-saga/pkg/session"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromFile("./cmd/order-service", "order-service")
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	shutdownTelemetry, err := telemetry.Init(cfg.Observability)
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}
	defer shutdownTelemetry()

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer db.Close()

	pgStore := store.NewPostgresStore(db)
	if err := pgStore.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema: ", err)
	}

	messageBroker, err := broker.NewBroker(ctx, &cfg.Broker)
	if err != nil {
		log.Fatal("Failed to initialize broker: ", err)
	}
	defer messageBroker.Close()

	repo, err := store.NewRepository(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize repository: ", err)
	}
	outboxRelay := relay.NewOutboxRelay(repo, messageBroker, cfg.Relay)
	go outboxRelay.Run(ctx)

	orderSvc := orders.NewService(pgStore)
	paymentClient := saga.NewPaymentClient(cfg.Saga.PaymentURL, cfg.Saga.CallTimeout)
	notificationClient := saga.NewNotificationClient(cfg.Saga.NotificationURL, cfg.Saga.CallTimeout)
	orchestrator := saga.NewOrchestrator(orderSvc, paymentClient, notificationClient, cfg.Saga)

	catalogClient, err := catalog.NewClient(cfg.Catalog)
	if err != nil {
		log.Fatal("Failed to initialize catalog: ", err)
	}
	defer catalogClient.Close()

	sessions, err := session.NewStore(cfg.Session)
	if err != nil {
		log.Fatal("Failed to initialize session store: ", err)
	}
	issuer, err := auth.NewIssuer(cfg.Auth)
	if err != nil {
		log.Fatal("Failed to initialize auth: ", err)
	}

	app := fiber.New()
	httpapi.NewOrderAPI(orderSvc, orchestrator, catalogClient, sessions, issuer, cfg.Session).Register(app)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatal("HTTP server stopped: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down order service")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Println("HTTP shutdown error: ", err)
	}
}
