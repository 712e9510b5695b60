package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thrift-orders/config"
	"thrift-orders/internal/api"
	"thrift-orders/internal/broker"
	"thrift-orders/internal/guard"
	"thrift-orders/internal/redisclient"
	"thrift-orders/internal/service"
	"thrift-orders/internal/stockpile"
	"thrift-orders/internal/store"
	"thrift-orders/internal/util"
	"thrift-orders/internal/watch"
	"thrift-orders/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting thrift-orders service")

	tp, err := util.InitTracer("thrift-orders", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	notifier := broker.NewNotificationPublisher(producer)
	usageGuard := guard.New(redisClient)
	hub := watch.NewHub()

	orderService := service.NewOrderService(db, notifier, redisClient, hub)
	fulfillmentService := service.NewFulfillmentService(db, notifier, redisClient, hub,
		cfg.Business.RiderNumberMinLen, cfg.Business.RiderNumberMaxLen)
	offerService := service.NewOfferService(db, usageGuard, cfg.Business)
	stockpileService := service.NewStockpileService(db, db,
		cfg.Business.ReadRetryAttempts, cfg.Business.ReadRetryBackoff)
	aggregator := stockpile.NewAggregator(db, cfg.Business.ReadRetryAttempts, cfg.Business.ReadRetryBackoff)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Piles close on their own when the window passes; the sweep just
	// reconciles the is_active flag.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if _, err := stockpileService.SweepExpired(workerCtx); err != nil {
					log.Printf("Stockpile sweep error: %v", err)
				}
			}
		}
	}()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(consumer, db, worker.LogNotifier{})
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService, fulfillmentService, offerService, stockpileService, aggregator, db)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()

	log.Println("Server exited")
}
