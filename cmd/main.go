/**
 * @description
 * This is the main entry point for the back-office transaction service. It
 * initializes configuration, the selected store (Postgres or local file),
 * the notification bus, the RabbitMQ change-event producer and consumer,
 * the lifecycle manager, the stats reconciler and the HTTP server, then
 * runs until a shutdown signal arrives.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/robfig/cron/v3 (via internal/app): Stats reconciler.
 * - internal/api, internal/app, internal/config, internal/notify,
 *   internal/store, pkg/rabbitmq.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goldenelnobles/transaction-service/internal/api"
	"github.com/goldenelnobles/transaction-service/internal/app"
	"github.com/goldenelnobles/transaction-service/internal/config"
	"github.com/goldenelnobles/transaction-service/internal/notify"
	"github.com/goldenelnobles/transaction-service/internal/store"
	rmrabbit "github.com/goldenelnobles/transaction-service/pkg/rabbitmq"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.AuthJWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"auth jwt secret must be configured\" env=AUTH_JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting transaction-service\" port=%s store=%s corridor=%s<->%s",
		cfg.ServerPort, cfg.StoreDriver, cfg.CorridorOrigin, cfg.CorridorDestination)

	// Select the store implementation once, here; business logic only ever
	// sees the Repository interface.
	var repository store.Repository
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
		}
		poolConfig.MaxConns = 20
		poolConfig.MinConns = 2
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
		}
		defer dbpool.Close()
		repository = store.NewPostgresRepository(dbpool)
		log.Println("level=info component=bootstrap msg=\"database connected\"")
	case config.StoreDriverLocal:
		localRepo, err := store.NewLocalRepository(cfg.LocalStorePath)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"local store open failed\" path=%s err=%v", cfg.LocalStorePath, err)
		}
		repository = localRepo
		log.Printf("level=info component=bootstrap msg=\"local store opened\" path=%s", cfg.LocalStorePath)
	}

	// Broker connectivity is best effort: without it the service degrades to
	// local-only change notification.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		producer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	bus := notify.NewBus()
	transactionService := app.NewService(repository, bus, producer)

	if _, ok := producer.(*rmrabbit.EventProducerFallback); !ok {
		feedConsumer := transactionService.ChangeFeedConsumer()
		rabbitConsumer, err := rmrabbit.NewConsumer(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; remote changes disabled\" err=%v", err)
		} else {
			defer rabbitConsumer.Close()
			if err := rabbitConsumer.ConsumeWithBindings(rmrabbit.ChangeExchange, cfg.ChangeEventQueue, feedConsumer.FeedBindings()); err != nil {
				log.Fatalf("level=fatal component=bootstrap msg=\"change feed consumer start failed\" err=%v", err)
			}
			log.Println("level=info component=bootstrap msg=\"change feed consumer started\"")
		}
	}

	reconciler := app.NewReconciler(transactionService)
	if err := reconciler.Start(cfg.StatsReconcileSchedule); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"reconciler start failed\" schedule=%q err=%v", cfg.StatsReconcileSchedule, err)
	}
	defer reconciler.Stop()

	transactionHandlers := api.NewTransactionHandlers(transactionService)
	router := chi.NewRouter()
	router.Mount("/transactions", api.TransactionRoutes(transactionHandlers, cfg.AuthJWTSecret))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
