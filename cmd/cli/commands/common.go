package commands

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/lankastats/tourcast/internal/config"
	"github.com/lankastats/tourcast/internal/dataset"
	"github.com/lankastats/tourcast/internal/pipeline"
	"github.com/lankastats/tourcast/internal/store"
	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// newLogger builds the CLI logger from the configured level.
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// loadConfig merges defaults, the config file and environment.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newArtifactStore builds the configured artifact backend.
func newArtifactStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store.ArtifactStore, error) {
	switch cfg.Store.Backend {
	case "", "file":
		return store.NewFileStore(&cfg.Store.File, logger)
	case "s3":
		return store.NewS3Store(ctx, &cfg.Store.S3, logger)
	default:
		return nil, errors.NewStorageError(errors.CodeInvalidConfig,
			"unknown artifact backend "+cfg.Store.Backend)
	}
}

// newPipeline assembles the training/forecast pipeline from config.
func newPipeline(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*pipeline.Pipeline, error) {
	artifacts, err := newArtifactStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	forecasts, err := store.NewForecastCSVStore(cfg.Data.ForecastCSV, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(&cfg.Tree, &cfg.Sequence, artifacts, forecasts, logger), nil
}

// loadRecords reads the arrivals dataset named by config or flag.
func loadRecords(path string, cfg *config.Config, logger *logrus.Logger) ([]models.RawRecord, error) {
	if path == "" {
		path = cfg.Data.ArrivalsCSV
	}
	return dataset.NewLoader(logger).LoadFile(path)
}
