package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecosheet/ecosheet-backend/api/routes"
	"github.com/ecosheet/ecosheet-backend/internal/audit"
	"github.com/ecosheet/ecosheet-backend/internal/catalog"
	"github.com/ecosheet/ecosheet-backend/internal/mapping"
	"github.com/ecosheet/ecosheet-backend/internal/pipeline"
	"github.com/ecosheet/ecosheet-backend/pkg/config"
	"github.com/ecosheet/ecosheet-backend/pkg/db"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
	"github.com/ecosheet/ecosheet-backend/pkg/metrics"
	"github.com/ecosheet/ecosheet-backend/pkg/redis"
	"github.com/ecosheet/ecosheet-backend/pkg/sheets"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.AuditDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap audit database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing audit database", err)
		}
	}()

	if cfg.AuditDB.AutoMigrate {
		if err := audit.Migrate(dbClient.DB()); err != nil {
			logg.Error(context.Background(), "failed to migrate audit database", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sheetsClient := sheets.NewClient(cfg.Sheets)
	catalogLoader := catalog.NewLoader(cfg.Catalog, logg)

	ruleProvider := mapping.NewRuleProvider(mapping.DefaultParserConfig())
	var provider mapping.Provider = ruleProvider
	var fallback mapping.Provider
	if cfg.Mapper.APIKey != "" {
		chatProvider, err := mapping.NewChatProvider(cfg.Mapper)
		if err != nil {
			logg.Error(context.Background(), "failed to create chat mapping provider", err)
			os.Exit(1)
		}
		provider = chatProvider
		fallback = ruleProvider
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	pipelineSessions := pipeline.SessionFunc(func(ctx context.Context, accessToken string) (pipeline.TableStore, error) {
		return sheetsClient.Session(ctx, accessToken)
	})
	pipelineService, err := pipeline.NewService(
		pipelineSessions,
		redisClient,
		provider,
		fallback,
		nil,
		nil,
		catalogLoader,
		cfg.Pipeline,
		logg,
		pipelineMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline service", err)
		os.Exit(1)
	}

	auditSessions := audit.SessionFunc(func(ctx context.Context, accessToken string) (audit.SheetSession, error) {
		return sheetsClient.Session(ctx, accessToken)
	})
	auditService, err := audit.NewService(auditSessions, audit.NewRepository(dbClient.DB()), cfg.Pipeline.HistorySheetName, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, pipelineService, auditService, registry),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			if err := server.Close(); err != nil {
				logg.Error(ctx, "forced close failed", err)
			}
		}
	}
}
