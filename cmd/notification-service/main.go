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

	"github.com/zoff-tech/go-shop-saga/pkg/broker"
	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/httpapi"
	"github.com/zoff-tech/go-shop-saga/pkg/inbox"
	"github.com/zoff-tech/go-shop-saga/pkg/notifications"
	"github.com/zoff-tech/go-shop-saga/pkg/relay"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromFile("./cmd/notification-service", "notification-service")
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

	notificationSvc := notifications.NewService(pgStore, notifications.LogSender{})

	messageConsumer, err := broker.NewConsumer(ctx, &cfg.Broker)
	if err != nil {
		log.Fatal("Failed to initialize consumer: ", err)
	}
	defer messageConsumer.Close()

	consumer := inbox.NewConsumer(pgStore, messageConsumer, messageBroker, notificationSvc, cfg.Consumer)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal("Consumer stopped: ", err)
		}
	}()

	app := fiber.New()
	httpapi.NewNotificationAPI(notificationSvc).Register(app)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatal("HTTP server stopped: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down notification service")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Println("HTTP shutdown error: ", err)
	}
}
