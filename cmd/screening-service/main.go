package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/cache"
	"github.com/SAP-F-2025/screening-service/internal/config"
	"github.com/SAP-F-2025/screening-service/internal/handlers"
	"github.com/SAP-F-2025/screening-service/internal/questionbank"
	"github.com/SAP-F-2025/screening-service/internal/remote"
	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"github.com/SAP-F-2025/screening-service/internal/repositories/memory"
	"github.com/SAP-F-2025/screening-service/internal/repositories/postgres"
	redisrepo "github.com/SAP-F-2025/screening-service/internal/repositories/redis"
	"github.com/SAP-F-2025/screening-service/internal/services"
	"github.com/SAP-F-2025/screening-service/internal/session"
	"github.com/SAP-F-2025/screening-service/internal/utils"
	"github.com/SAP-F-2025/screening-service/internal/validator"
	"github.com/SAP-F-2025/screening-service/pkg"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	if err := run(cfg, logger, slogger); err != nil {
		slogger.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger, slogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.StoreBackend == config.BackendRedis {
		client, err := pkg.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
	}

	kv, err := newKVStore(cfg, redisClient)
	if err != nil {
		return err
	}
	slogger.Info("Store backend ready", "backend", cfg.StoreBackend)

	v := validator.New()

	loaderOpts := []questionbank.Option{questionbank.WithLogger(slogger)}
	if redisClient != nil {
		loaderOpts = append(loaderOpts, questionbank.WithCache(cache.NewRedisCache(redisClient, slogger), cfg.QuestionCacheTTL))
	}
	loader := questionbank.NewLoader(os.DirFS(cfg.QuestionBankDir), cfg.DefaultLanguage, v, loaderOpts...)
	if languages, err := loader.Languages(); err != nil {
		slogger.Warn("Failed to list question bank languages", "dir", cfg.QuestionBankDir, "error", err)
	} else {
		slogger.Info("Question bank loaded", "dir", cfg.QuestionBankDir, "languages", languages)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slogger.Error("Failed to close event publisher", "error", err)
		}
	}()

	remoteCfg := remote.Config{
		DrawingURL:      cfg.DrawingServiceURL,
		AudioURL:        cfg.AudioServiceURL,
		AudioExtraParam: cfg.AudioExtraParam,
		DrawingInterval: cfg.DrawingPollInterval,
		AudioInterval:   cfg.AudioPollInterval,
	}
	httpClient := &http.Client{Timeout: cfg.RemoteHTTPTimeout}

	reportService := services.NewReportService(cfg.CategoryCeilings)
	historyService := services.NewHistoryService(repositories.NewHistoryRepository(kv), slogger)
	exportService := services.NewExportService(slogger)
	sessionService := services.NewSessionService(services.SessionServiceConfig{
		Loader:    loader,
		Reporter:  reportService,
		History:   historyService,
		Scores:    repositories.NewScoreRepository(kv),
		Publisher: publisher,
		Submitter: func(pending remote.PendingStore) session.Submitter {
			return remote.NewClient(remoteCfg, pending,
				remote.WithHTTPClient(httpClient),
				remote.WithLogger(slogger))
		},
		Logger: slogger,
	})
	defer sessionService.Shutdown()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		utils.RequestID(),
		utils.LoggerMiddleware(logger),
		utils.ContextLogger(logger),
		cors.New(corsConfig(cfg.CORSOrigins)),
	)
	handlers.NewHandlerManager(sessionService, historyService, exportService, v, logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slogger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slogger.Info("Server shutdown complete")
	return nil
}

func newKVStore(cfg *config.Config, client *redis.Client) (repositories.KVStore, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return redisrepo.NewKV(client, "screening:"), nil
	case config.BackendPostgres:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewKVPostgreSQL(db), nil
	default:
		return memory.NewKV(), nil
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", utils.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}
