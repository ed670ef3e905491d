package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomchat/internal/cache"
	"roomchat/internal/config"
	"roomchat/internal/crypto"
	"roomchat/internal/handler"
	"roomchat/internal/messaging"
	"roomchat/internal/middleware"
	"roomchat/internal/observability"
	"roomchat/internal/repository/postgres"
	"roomchat/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat)

	slog.Info("starting room server")

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	db, err := config.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(connCtx); err != nil {
		slog.Error("database ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to postgresql")

	rmqCtx, rmqCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer rmqCancel()

	rmq, err := messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
	if err != nil {
		slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rmq.Close()

	codec, err := crypto.NewCodec(cfg.MessageKey)
	if err != nil {
		slog.Error("failed to initialize message codec", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var listingCache service.ListingCache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(connCtx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisCache.Close()
		listingCache = redisCache
		slog.Info("listing cache enabled")
	} else {
		slog.Info("REDIS_URL not set, listing cache disabled")
	}

	roomRepo := postgres.NewRoomRepository(db)

	roomService := service.NewRoomService(roomRepo, rmq)
	chatService := service.NewChatService(roomRepo, codec, rmq)
	listingService := service.NewListingService(roomRepo, codec, listingCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditConsumer := messaging.NewAuditConsumer(rmq)
	if err := auditConsumer.Start(ctx); err != nil {
		slog.Error("failed to start audit consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("audit consumer started")

	go reportPoolStats(ctx, db)

	roomHandler := handler.NewRoomHandler(roomService, listingService)
	chatHandler := handler.NewChatHandler(chatService)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())
	r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig()))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db, rmq))
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	r.Route("/api/v1", func(r chi.Router) {
		apiLimiter := middleware.NewRateLimiter(20, 50)

		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(apiLimiter.Middleware())

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", roomHandler.List)
			r.Post("/", roomHandler.Create)
			r.Get("/private/{userId}", roomHandler.GetPrivate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", roomHandler.Get)
				r.Post("/leave", roomHandler.Leave)
				r.Delete("/users/{userId}", roomHandler.DeleteUser)
				r.Patch("/admins/{userId}", roomHandler.SetAdmin)
				r.Delete("/admins/{userId}", roomHandler.DownAdmin)

				r.Post("/chats", chatHandler.Create)
				r.Patch("/chats/read", chatHandler.SetRead)
				r.Patch("/chats/{chatId}", chatHandler.Edit)
				r.Delete("/chats/{chatId}", chatHandler.Delete)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("room server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}

// reportPoolStats publishes database pool gauges every 15 seconds
func reportPoolStats(ctx context.Context, db *sql.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			observability.DBConnectionsOpen.Set(float64(stats.OpenConnections))
			observability.DBConnectionsInUse.Set(float64(stats.InUse))
			observability.DBConnectionsIdle.Set(float64(stats.Idle))
		}
	}
}
