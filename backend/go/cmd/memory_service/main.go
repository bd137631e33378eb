package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"couplecoach/backend/go/internal/config"
	"couplecoach/backend/go/internal/database/kafka"
	"couplecoach/backend/go/internal/database/mysql"
	"couplecoach/backend/go/internal/database/redis"
	"couplecoach/backend/go/internal/discovery/etcd"
	"couplecoach/backend/go/internal/memory/api"
	"couplecoach/backend/go/internal/memory/service"
	"couplecoach/backend/go/internal/memory/store"
	"couplecoach/backend/go/internal/models"
	httpserver "couplecoach/backend/go/pkg/http"
	"couplecoach/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

const serviceName = "memory_service"

func main() {
	// Load configuration
	configPath := os.Getenv("MEMORY_SERVICE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New(serviceName, "", "")
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database connection
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mysql.Close()

	if cfg.Databases.MySQL.AutoMigrate {
		if err := db.AutoMigrate(&models.User{}, &models.Couple{}, &models.SessionRecord{}); err != nil {
			appLogger.Fatal(err.Error())
		}
		appLogger.Info("Database migration completed")
	}

	// Memory events are optional; without brokers erasures are not announced.
	var publisher service.EventPublisher
	if len(cfg.Databases.Kafka.Brokers) > 0 {
		kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer kafkaClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := kafkaClient.HealthCheck(pingCtx); err != nil {
			appLogger.WithField("error", err.Error()).Warn("Kafka broker not reachable, memory events may be dropped")
		}
		cancel()
		publisher = kafka.NewEventPublisher(kafkaClient.Writer, cfg.Memory.EventsTopic)
	}

	// Initialize dependencies (Store -> Service -> Handler)
	memoryStore := store.NewGormStore(db)
	contextService := service.NewContextService(memoryStore, appLogger, cfg.Location())
	eraseService := service.NewEraseService(memoryStore, publisher, appLogger)
	apiHandler := api.NewHandler(contextService, eraseService, mysql.HealthCheck)
	router, err := api.SetupRouter(apiHandler, appLogger, cfg.Auth.JwtSecret, cfg.Middleware.RateLimiter.TrustedProxies)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	if cfg.Auth.JwtSecret == "" {
		appLogger.Warn("auth.jwtSecret is empty, memory endpoints are unauthenticated")
	}

	serverOpts := []httpserver.ServerOption{
		httpserver.WithLogger(appLogger),
		httpserver.WithBreakerExempt(api.BreakerExemptPaths()...),
	}
	if cfg.Middleware.RateLimiter.Enabled && cfg.Middleware.RateLimiter.Algorithm == "redisWindow" {
		redisClient, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer redis.Close()
		serverOpts = append(serverOpts, httpserver.WithRedis(redisClient))
	}

	srv, err := httpserver.NewServer(cfg, router, serverOpts...)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	// Register with etcd once the listener is starting.
	var registration *etcd.Registration
	if len(cfg.Databases.Etcd.Endpoints) > 0 {
		discovery, err := etcd.NewServiceDiscovery(&cfg.Databases.Etcd)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer discovery.Close()

		registration, err = discovery.Register(context.Background(), serviceName, cfg.Server.AdvertiseAddress, cfg.Databases.Etcd.LeaseTTL)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		appLogger.WithField("key", registration.Key()).Info("Registered with etcd")
	}

	appLogger.Info("Memory service started")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-serverErr:
		if err != nil {
			appLogger.WithField("error", err.Error()).Error("HTTP server stopped unexpectedly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if registration != nil {
		if err := registration.Deregister(ctx); err != nil {
			appLogger.WithField("error", err.Error()).Warn("failed to deregister from etcd")
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithField("error", err.Error()).Error("graceful shutdown failed")
	}

	appLogger.Info("Memory service stopped")
}
