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

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	migrate "github.com/rubenv/sql-migrate"

	_ "github.com/johnquangdev/meetcore/docs"
	pkgvalidator "github.com/johnquangdev/meetcore/pkg/validator"

	"github.com/johnquangdev/meetcore/internal/adapter/handler"
	"github.com/johnquangdev/meetcore/internal/adapter/repository"
	"github.com/johnquangdev/meetcore/internal/infrastructure/cache"
	"github.com/johnquangdev/meetcore/internal/infrastructure/database"
	"github.com/johnquangdev/meetcore/internal/infrastructure/storage"
	"github.com/johnquangdev/meetcore/internal/usecase/analysis"
	"github.com/johnquangdev/meetcore/internal/usecase/meeting"
	"github.com/johnquangdev/meetcore/internal/usecase/session"
	"github.com/johnquangdev/meetcore/internal/usecase/signaling"
	"github.com/johnquangdev/meetcore/internal/usecase/transcript"
	pkgai "github.com/johnquangdev/meetcore/pkg/ai"
	"github.com/johnquangdev/meetcore/pkg/config"
	"github.com/johnquangdev/meetcore/pkg/jwt"
)

// @title           meetcore API
// @version         1.0
// @description     Room directory, signaling relay and transcript pipeline for mesh video meetings

// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Cookie"},
		AllowCredentials: true,
	}))

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	logger.Info("🔧 Initializing dependencies...")

	// Initialize Database
	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if cfg.Database.AutoMigrate {
		if _, err := database.Migrate(db, migrate.Up, 0, logger); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	} else {
		logger.Info("🔄 Skipping migrations; run cmd/migrate to manage the schema")
	}

	// Initialize repositories
	meetingRepo := repository.NewMeetingRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Profile cache: Redis when enabled, process memory otherwise
	var profileCache session.ProfileCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(rootCtx, cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		profileCache = cache.NewRedisProfileCache(redisClient, cfg.Redis.ProfileTTL, logger)
		logger.Info("📦 Profile cache: redis", zap.String("addr", cfg.GetRedisAddr()))
	} else {
		memCache := cache.NewMemoryProfileCache(cfg.Redis.ProfileTTL)
		go memCache.Run(rootCtx, time.Minute)
		profileCache = memCache
		logger.Info("📦 Profile cache: memory")
	}

	// Artifact storage
	var store transcript.ArtifactStore
	switch cfg.Storage.Type {
	case "minio":
		minioStore, err := storage.NewMinIOStore(rootCtx, &cfg.Storage, logger)
		if err != nil {
			logger.Fatal("Failed to initialize MinIO storage", zap.Error(err))
		}
		store = minioStore
	default:
		localStore, err := storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			logger.Fatal("Failed to initialize local storage", zap.Error(err))
		}
		store = localStore
		logger.Info("💾 Artifacts written to local disk", zap.String("dir", cfg.Storage.LocalDir))
	}

	// Summarizer
	groqClient := pkgai.NewGroqClient(&cfg.Groq)
	if !groqClient.Configured() {
		logger.Warn("⚠️  GROQ_API_KEY not set, analysis uses the heuristic fallback")
	}
	analysisService := analysis.NewService(groqClient, store, reportRepo, analysis.Options{
		SummarizerTimeout: cfg.Analysis.SummarizerTimeout,
		LiveTimeout:       cfg.Analysis.LiveTimeout,
		MaxRetries:        cfg.Storage.MaxRetries,
	}, logger)

	// Realtime core
	hub := handler.NewHub(logger)
	enricher := session.NewStoreEnricher(profileRepo, profileCache, cfg.Profile.AvatarBaseURL, logger)
	registry := session.NewRegistry(enricher, logger)
	buffer := transcript.NewBuffer()

	coordinator := meeting.NewCoordinator(meeting.Deps{
		Registry:  registry,
		Relay:     signaling.NewRelay(registry, hub, logger),
		Buffer:    buffer,
		Persister: transcript.NewPersister(buffer, store, cfg.Storage.MaxRetries, logger),
		Analysis:  analysisService,
		Meetings:  meetingRepo,
		Reports:   reportRepo,
		Notifier:  hub,
	}, meeting.Options{
		PipelineTimeout:    cfg.Analysis.PipelineTimeout,
		LiveEvery:          cfg.Analysis.LiveEvery,
		LiveWindow:         cfg.Analysis.LiveWindow,
		ChatHistoryLimit:   cfg.Analysis.ChatHistoryLimit,
		DrainRetryInterval: cfg.Analysis.DrainRetryInterval,
		DrainRetries:       cfg.Analysis.DrainRetries,
	}, logger)

	// Identity
	var jwtManager *jwt.Manager
	if cfg.JWT.Enabled {
		jwtManager = jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)
		logger.Info("🔑 JWT identity enabled")
	} else {
		logger.Warn("⚠️  JWT disabled, join-room userId is trusted")
	}

	// Handlers
	dispatcher := handler.NewDispatcher(coordinator, hub, pkgvalidator.New(), logger)
	wsHandler := handler.NewWebSocketHandler(hub, dispatcher, cfg.WebSocket, cfg.Server.AllowedOrigins, logger)
	roomHandler := handler.NewRoomHandler(coordinator, logger)

	router := handler.NewRouter(cfg, hub, roomHandler, wsHandler, jwtManager, registry, logger)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("🚀 Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
	}

	// Closing every socket runs each connection's disconnect, which starts
	// the flush of rooms that just emptied
	hub.CloseAll()
	if err := wsHandler.Wait(ctx); err != nil {
		logger.Warn("Connections still closing at shutdown", zap.Error(err))
	}
	if err := coordinator.Shutdown(ctx); err != nil {
		logger.Error("❌ Transcript pipelines did not finish", zap.Error(err))
	}

	logger.Info("✅ Server stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
