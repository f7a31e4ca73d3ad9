// Package config defines the process-wide configuration, constructed once
// at startup and passed into each component. No component reads ambient
// configuration on its own.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/lankastats/tourcast/internal/external"
	"github.com/lankastats/tourcast/internal/forecaster/gbt"
	"github.com/lankastats/tourcast/internal/forecaster/lstm"
	"github.com/lankastats/tourcast/internal/store"
)

// Config is the full process configuration.
type Config struct {
	Environment string `json:"environment" yaml:"environment"`
	LogLevel    string `json:"log_level" yaml:"log_level"`

	Data     DataConfig      `json:"data" yaml:"data"`
	Forecast ForecastConfig  `json:"forecast" yaml:"forecast"`
	Tree     gbt.Config      `json:"tree" yaml:"tree"`
	Sequence lstm.Config     `json:"sequence" yaml:"sequence"`
	Store    StoreConfig     `json:"store" yaml:"store"`
	Server   ServerConfig    `json:"server" yaml:"server"`
	Cache    CacheConfig     `json:"cache" yaml:"cache"`
	External external.Config `json:"external" yaml:"external"`
}

// DataConfig names the dataset and forecast file locations.
type DataConfig struct {
	ArrivalsCSV string `json:"arrivals_csv" yaml:"arrivals_csv"`
	ForecastCSV string `json:"forecast_csv" yaml:"forecast_csv"`
}

// ForecastConfig controls forecast generation.
type ForecastConfig struct {
	MonthsAhead int `json:"months_ahead" yaml:"months_ahead"`
}

// StoreConfig selects and configures the artifact backend.
type StoreConfig struct {
	Backend  string                `json:"backend" yaml:"backend"` // file or s3
	File     store.FileStoreConfig `json:"file" yaml:"file"`
	S3       store.S3StoreConfig   `json:"s3" yaml:"s3"`
	Postgres store.PostgresConfig  `json:"postgres" yaml:"postgres"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// CacheConfig holds the optional Redis cache settings.
type CacheConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Data: DataConfig{
			ArrivalsCSV: "data/arrivals.csv",
			ForecastCSV: "data/forecast.csv",
		},
		Forecast: ForecastConfig{MonthsAhead: 12},
		Tree:     *gbt.DefaultConfig(),
		Sequence: *lstm.DefaultConfig(),
		Store: StoreConfig{
			Backend: "file",
			File:    store.FileStoreConfig{BaseDir: "data/artifacts"},
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		External: *external.DefaultConfig(),
	}
}

// Load merges the baseline with whatever viper has read from the config
// file and TOURCAST_* environment variables.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
