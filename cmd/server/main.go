package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/lankastats/tourcast/internal/config"
	"github.com/lankastats/tourcast/internal/dataset"
	"github.com/lankastats/tourcast/internal/external"
	"github.com/lankastats/tourcast/internal/server"
	"github.com/lankastats/tourcast/internal/store"
)

func main() {
	v := viper.New()
	v.SetConfigName("tourcast")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/tourcast")
	v.AutomaticEnv()
	v.SetEnvPrefix("TOURCAST")
	_ = v.ReadInConfig()

	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.WithField("environment", cfg.Environment).Info("Starting tourcast API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records, err := dataset.NewLoader(logger).LoadFile(cfg.Data.ArrivalsCSV)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load arrivals dataset")
	}

	forecasts, err := store.NewForecastCSVStore(cfg.Data.ForecastCSV, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open forecast store")
	}

	// The live-data client is optional: without a reachable cache it
	// still works, hitting the upstream APIs directly.
	var cache *external.Cache
	if cfg.Cache.Enabled {
		cache, err = external.NewCache(ctx, &external.CacheConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis cache unavailable, continuing without it")
			cache = nil
		}
	}
	live := external.NewClient(&cfg.External, cache, logger)

	handlers := server.NewHandlers(records, forecasts, live, logger)
	srv := server.New(&cfg.Server, handlers, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	if cache != nil {
		cache.Close()
	}
	logger.Info("Server stopped")
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
