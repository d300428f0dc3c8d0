package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/cache"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/client"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/config"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/handler"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/hub"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/kafka"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/repository"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/service"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/database"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/jwt"
	pkglog "github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		ServiceName: "chat-service",
	})
	logger := pkglog.L()

	logger.Info().Msgf("starting chat service on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Initialize database
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.SessionModel{}, &domain.MessageModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	sessionRepo := repository.NewGormSessionRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	// Initialize profile lookup with Redis cache
	profileCache, err := cache.NewRedisProfileCache(cfg.Redis, cfg.Cache.Prefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer profileCache.Close()
	logger.Info().Str("address", cfg.Redis.Address).Msg("redis ready")

	profileClient := client.NewHTTPProfileClient(cfg.Profile.BaseURL, cfg.Profile.Timeout)
	profiles := cache.NewCachedProfileLookup(profileClient, profileCache, cfg.Cache.TTL)

	// Initialize Kafka producer
	producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize kafka producer")
	}
	logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka ready")

	// Initialize hub and service
	wsHub := hub.NewHub()
	chatSvc := service.NewChatService(sessionRepo, messageRepo, wsHub, producer, profiles)
	defer chatSvc.Close()

	// Initialize handlers
	verifier := jwt.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	httpHandler := handler.NewHTTPHandler(chatSvc, authMiddleware, cfg.Auth.InternalAPIKey)
	wsHandler := handler.NewWSHandler(wsHub, chatSvc, verifier, cfg.WebSocket)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(pkglog.GinMiddleware(*logger))

	httpHandler.RegisterRoutes(router)
	router.GET("/ws/chat", wsHandler.Handle)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Msgf("chat service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("chat service stopped")
}
