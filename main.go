package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"project-comms/internal/communication"
	"project-comms/internal/config"
	"project-comms/internal/db"
	"project-comms/internal/handlers"
	"project-comms/internal/idempotency"
	"project-comms/internal/middleware"
	"project-comms/internal/observability"
	"project-comms/internal/rabbitmq"
	"project-comms/internal/realtime"
	"project-comms/internal/repositories"
	"project-comms/internal/storage"
	"project-comms/internal/telemetry"
	"project-comms/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Env)
	events := telemetry.NewEventEmitter(publisher, cfg.ServiceName, cfg.Env)

	deps := communication.Dependencies{
		Groups:        repositories.NewGroupRepo(database),
		Messages:      repositories.NewMessageRepo(database),
		Notifications: repositories.NewNotificationRepo(database),
		Reports:       repositories.NewProgressReportRepo(database),
		Alerts:        repositories.NewSafetyAlertRepo(database),
		Emitter:       events,
	}

	switch cfg.RealtimeDriver {
	case config.RealtimeMemory:
		// No trigger feeds the in-process broker, so writers publish their own changes.
		broker := realtime.NewMemoryBroker()
		deps.Realtime = broker
		deps.Changes = broker
	default:
		broker := realtime.NewPGBroker(cfg.DatabaseDSN, cfg.RealtimeMinReconnect, cfg.RealtimeMaxReconnect)
		defer broker.Close()
		go func() {
			if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("realtime broker stopped: %v", err)
			}
		}()
		deps.Realtime = broker
	}

	var redisGuard *idempotency.RedisGuard
	if cfg.RedisAddr != "" {
		client := idempotency.NewRedisClient(cfg.RedisAddr)
		defer client.Close()
		redisGuard = idempotency.NewRedisGuard(client, cfg.IdempotencyTTL)
		if err := redisGuard.Ping(ctx); err != nil {
			log.Printf("redis unavailable addr=%s: %v", cfg.RedisAddr, err)
		}
		deps.Guard = redisGuard
	}

	var photos *storage.PhotoStore
	if cfg.MinioEndpoint != "" {
		client, err := storage.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioRegion, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to create minio client: %v", err)
		}
		photos = storage.NewPhotoStore(client, cfg.MinioBucket, cfg.UploadURLTTL)
		if err := photos.EnsureBucket(ctx); err != nil {
			log.Printf("minio bucket check failed bucket=%s: %v", cfg.MinioBucket, err)
		}
	}

	registry := communication.NewRegistry(deps, communication.Options{
		MessageLimit:      cfg.MessageLimit,
		NotificationLimit: cfg.NotificationLimit,
		RecentReports:     cfg.RecentReports,
		Realtime:          true,
	}, cfg.ManagerIdleTTL)
	defer registry.Close()

	tokens := middleware.NewTokenService(cfg.JWTSecret, 0)
	hub := ws.NewHub(events)

	commHandler := handlers.NewCommunicationHandler(registry, nil, audit)
	if photos != nil {
		commHandler = handlers.NewCommunicationHandler(registry, photos, audit)
	}
	streamHandler := ws.NewStreamHandler(hub, registry, cfg.AllowedWSOrigins)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(handlers.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
		if redisGuard != nil {
			if err := redisGuard.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "managers": registry.Len()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, tokens, cfg.DebugRoutes)

	api := router.Group("/", middleware.AuthMiddleware(tokens, false))
	commHandler.Register(api)
	router.GET("/ws/projects/:project_id", middleware.AuthMiddleware(tokens, true), streamHandler.Handle)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("project-comms listening port=%s env=%s realtime=%s", cfg.Port, cfg.Env, cfg.RealtimeDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
