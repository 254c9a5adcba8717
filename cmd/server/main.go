package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrewseusebio/Rc-Store/internal/api"
	"github.com/andrewseusebio/Rc-Store/internal/config"
	"github.com/andrewseusebio/Rc-Store/internal/handler"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/gateway"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/kafka"
	"github.com/andrewseusebio/Rc-Store/internal/infrastructure/redis"
	"github.com/andrewseusebio/Rc-Store/internal/observability"
	core "github.com/andrewseusebio/Rc-Store/internal/repository/postgres"
	service "github.com/andrewseusebio/Rc-Store/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	shutdown, _ := observability.Setup("rc-store")
	defer shutdown(context.Background())

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping Postgres: %v", err)
	}

	accountRepo := core.NewPostgresAccountRepository(db)
	inventoryRepo := core.NewPostgresInventoryRepository(db)
	orderRepo := core.NewPostgresOrderRepository(db)
	catalogRepo := core.NewPostgresCatalogRepository(db)
	depositRepo := core.NewPostgresDepositRepository(db)

	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	gw := gateway.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)

	storeSvc := service.NewStoreService(accountRepo, inventoryRepo, orderRepo, catalogRepo, redisClient, producer, cfg.JWTSecret)
	depositSvc := service.NewDepositService(accountRepo, depositRepo, catalogRepo, redisClient, gw)
	adminSvc := service.NewAdminService(accountRepo, inventoryRepo, orderRepo, catalogRepo, cfg.AdminIDs)

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	paymentConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "payments", "rc-store-payments", depositSvc)
	go paymentConsumer.Consume(consumerCtx)
	defer paymentConsumer.Close()
	defer cancelConsumer()

	h := handler.NewHandler(storeSvc, depositSvc, producer)
	adminHandler := handler.NewAdminHandler(adminSvc)
	router := api.SetupRouter(h, adminHandler, redisClient, cfg.JWTSecret, cfg.AdminTokenHash)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
