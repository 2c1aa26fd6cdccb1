package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/api"
	"github.com/court-causelist/backend/internal/cache/redis"
	"github.com/court-causelist/backend/internal/causelist"
	"github.com/court-causelist/backend/internal/metrics"
	"github.com/court-causelist/backend/internal/retention"
	"github.com/court-causelist/backend/internal/storage/sqlite"
	"github.com/court-causelist/backend/pkg/config"
	appLogger "github.com/court-causelist/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Court Cause List API Server",
		zap.String("driver", cfg.Scraper.Driver),
		zap.String("default_site", cfg.Scraper.DefaultSite),
	)

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cache redis.Cache = redis.Nop{}
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL())
		if err != nil {
			appLogger.Warn("Redis unavailable, metadata caching disabled", zap.Error(err))
		} else {
			cache = redisClient
			defer redisClient.Close()
		}
	}

	service, err := causelist.NewServiceFromConfig(cfg, cache, sqliteClient, appLogger.Named("causelist"))
	if err != nil {
		appLogger.Fatal("Failed to create cause list service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := retention.NewSweeper(sqliteClient, retention.Config{
		OutputDir:    cfg.Output.Dir,
		Retention:    cfg.Output.Retention(),
		RunRetention: time.Duration(cfg.Output.RunRetentionHours) * time.Hour,
		Interval:     cfg.Output.SweepInterval(),
	}, appLogger.Named("retention"))
	go sweeper.Run(ctx)

	server := api.NewServer(service, api.Config{
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:       cfg.Server.BodyLimit,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Development:     cfg.Server.Development,
		FetchPerMinute:  cfg.RateLimit.FetchPerMinute,
		LookupPerMinute: cfg.RateLimit.LookupPerMinute,
		AccessLog:       true,
		Logger:          appLogger.Named("http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	cancel()
	if err := server.Shutdown(time.Duration(cfg.Server.WriteTimeout) * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
